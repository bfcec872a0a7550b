package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mohamedkhairy/fire-scanner/internal/config"
	"github.com/mohamedkhairy/fire-scanner/internal/models"
	"github.com/mohamedkhairy/fire-scanner/pkg/logger"
)

var (
	// ErrStreamRejected is returned when the stream answers a snapshot request with an error
	ErrStreamRejected = errors.New("stream rejected snapshot request")
)

// Stream message types
const (
	msgSnapshot  = "snapshot"   // complete batch in one message
	msgItems     = "items"      // one chunk of a batch, terminated by msgEnd
	msgEnd       = "end"        // end of a chunked batch
	msgEmpty     = "empty"      // no fresh data for the venue
	msgWarmingUp = "warming_up" // stream has not built a snapshot yet
	msgError     = "error"
)

type snapshotRequest struct {
	Action    string `json:"action"`
	Venue     string `json:"venue"`
	Timeframe string `json:"timeframe"`
}

type streamMessage struct {
	Type    string                   `json:"type"`
	Items   []map[string]interface{} `json:"items"`
	Message string                   `json:"message,omitempty"`
}

// StreamSource is the low-latency primary source. Each fetch opens a
// WebSocket, asks for the current snapshot and waits at most SnapshotWait for
// it. A stream that has nothing ready inside that window is reported as
// empty so the caller can fall back.
type StreamSource struct {
	name         string
	url          string
	dialer       *websocket.Dialer
	snapshotWait time.Duration
	normalizer   Normalizer
}

// NewStreamSource creates a WebSocket snapshot source
func NewStreamSource(cfg config.SourceConfig) (Source, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("stream source %q: url is required", cfg.Name)
	}
	wait := cfg.SnapshotWait
	if wait <= 0 {
		wait = 500 * time.Millisecond
	}
	handshake := cfg.Timeout
	if handshake <= 0 {
		handshake = 10 * time.Second
	}
	return &StreamSource{
		name:         cfg.Name,
		url:          cfg.URL,
		dialer:       &websocket.Dialer{HandshakeTimeout: handshake},
		snapshotWait: wait,
		normalizer:   NewNormalizer(cfg.Name),
	}, nil
}

// Name returns the source name
func (s *StreamSource) Name() string {
	return s.name
}

// Fetch requests one snapshot from the stream
func (s *StreamSource) Fetch(ctx context.Context, venue string, timeframe models.Timeframe) ([]*models.RawItem, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("stream source %s: %w", s.name, ctx.Err())
		}
		return nil, fmt.Errorf("stream source %s: failed to dial: %w", s.name, err)
	}
	defer conn.Close()

	// Unblock reads when the request is cancelled
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	deadline := time.Now().Add(s.snapshotWait)
	deadlineFromCtx := false
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
		deadlineFromCtx = true
	}
	conn.SetWriteDeadline(deadline)
	conn.SetReadDeadline(deadline)

	req := snapshotRequest{Action: "snapshot", Venue: venue, Timeframe: string(timeframe)}
	if err := conn.WriteJSON(req); err != nil {
		return nil, s.readError(ctx, err, deadlineFromCtx)
	}

	var chunks []map[string]interface{}
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if isTimeout(err) && !deadlineFromCtx && ctx.Err() == nil {
				if len(chunks) > 0 {
					logger.Warn("Discarding incomplete stream snapshot",
						logger.String("source", s.name),
						logger.String("venue", venue),
						logger.Int("records", len(chunks)),
					)
				}
				return []*models.RawItem{}, nil
			}
			return nil, s.readError(ctx, err, deadlineFromCtx)
		}

		var msg streamMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return nil, fmt.Errorf("stream source %s: %w: %v", s.name, ErrInvalidMessage, err)
		}

		switch msg.Type {
		case msgSnapshot:
			return normalizeAll(s.normalizer, msg.Items, venue, timeframe), nil
		case msgItems:
			chunks = append(chunks, msg.Items...)
		case msgEnd:
			return normalizeAll(s.normalizer, chunks, venue, timeframe), nil
		case msgEmpty, msgWarmingUp:
			logger.Debug("Stream has no snapshot",
				logger.String("source", s.name),
				logger.String("venue", venue),
				logger.String("reason", msg.Type),
			)
			return []*models.RawItem{}, nil
		case msgError:
			return nil, fmt.Errorf("stream source %s: %w: %s", s.name, ErrStreamRejected, msg.Message)
		default:
			// Heartbeats and unrelated updates
			continue
		}
	}
}

func (s *StreamSource) readError(ctx context.Context, err error, deadlineFromCtx bool) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("stream source %s: %w", s.name, ctxErr)
	}
	if deadlineFromCtx && isTimeout(err) {
		return fmt.Errorf("stream source %s: %w", s.name, context.DeadlineExceeded)
	}
	return fmt.Errorf("stream source %s: %w", s.name, err)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
