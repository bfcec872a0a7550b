package models

import "errors"

var (
	ErrInvalidSymbol     = errors.New("invalid symbol")
	ErrInvalidVenue      = errors.New("invalid venue")
	ErrInvalidTimeframe  = errors.New("invalid timeframe")
	ErrNoDataAvailable   = errors.New("no data available")
	ErrSourceUnavailable = errors.New("source unavailable")
)
