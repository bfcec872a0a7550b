package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/mohamedkhairy/fire-scanner/internal/models"
	"github.com/mohamedkhairy/fire-scanner/pkg/logger"
)

// Badge names awarded from the score thresholds
const (
	BadgeElite = "elite"
	BadgeHigh  = "high"
)

type namedBadge struct {
	name string
	rule BadgeRule
}

// Engine turns raw items into scored items. It is read-only after
// construction and safe for concurrent use.
type Engine struct {
	rules     *Rules
	score     ScorePolicy
	freshness FreshnessPolicy
	flags     FlagPolicy
	now       func() time.Time

	elite  float64
	high   float64
	badges []namedBadge
}

// Option configures an Engine
type Option func(*Engine)

// WithScorePolicy replaces the default composite score policy
func WithScorePolicy(p ScorePolicy) Option {
	return func(e *Engine) { e.score = p }
}

// WithFreshnessPolicy replaces the default age-based freshness policy
func WithFreshnessPolicy(p FreshnessPolicy) Option {
	return func(e *Engine) { e.freshness = p }
}

// WithFlagPolicy replaces the default risk flag policy
func WithFlagPolicy(p FlagPolicy) Option {
	return func(e *Engine) { e.flags = p }
}

// WithClock sets the clock used by the default freshness policy
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine loads the rules once and builds the policies. A missing or
// malformed rules document is logged and replaced by empty rules, so
// construction never fails.
func NewEngine(source RulesSource, opts ...Option) *Engine {
	rules := loadRules(source)

	e := &Engine{
		rules: rules,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.score == nil {
		e.score = NewCompositePolicy(rules)
	}
	if e.freshness == nil {
		e.freshness = NewAgePolicy(rules, e.now)
	}
	if e.flags == nil {
		e.flags = NewRiskFlagPolicy(rules)
	}

	e.elite = rules.Threshold(ThresholdElite, DefaultEliteThreshold)
	e.high = rules.Threshold(ThresholdHigh, DefaultHighThreshold)

	names := make([]string, 0, len(rules.Badges))
	for name := range rules.Badges {
		if name == "" || name == BadgeElite || name == BadgeHigh {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		e.badges = append(e.badges, namedBadge{name: name, rule: rules.Badges[name]})
	}

	return e
}

func loadRules(source RulesSource) *Rules {
	if source == nil {
		return &Rules{}
	}
	rules, err := source.Load()
	if err != nil || rules == nil {
		logger.RulesLoadFailures.Inc()
		logger.Warn("Scoring rules unavailable, using defaults",
			logger.Any("source", source),
			logger.ErrorField(err),
		)
		return &Rules{}
	}
	return rules
}

// Version returns the loaded rules version, empty when none was configured
func (e *Engine) Version() string {
	return e.rules.Version
}

// Thresholds returns the effective elite and high badge thresholds
func (e *Engine) Thresholds() (elite, high float64) {
	return e.elite, e.high
}

// BadgeNames returns the configured named badges in the order they are awarded
func (e *Engine) BadgeNames() []string {
	names := make([]string, len(e.badges))
	for i, b := range e.badges {
		names[i] = b.name
	}
	return names
}

// ScoreItem scores a single item. The item must be non-nil.
func (e *Engine) ScoreItem(item *models.RawItem) models.ScoredItem {
	score := round2(clamp(e.score.Score(item), 0, 100))
	freshness := e.freshness.Classify(item)

	flags := e.flags.Flags(item)
	if flags == nil {
		flags = make(map[string]interface{})
	}

	return models.ScoredItem{
		Symbol:    item.Symbol,
		Score:     score,
		Badges:    e.badgesFor(score, freshness),
		Freshness: freshness,
		Flags:     flags,
	}
}

// ScoreItems scores every item, preserving order
func (e *Engine) ScoreItems(items []*models.RawItem) []models.ScoredItem {
	scored := make([]models.ScoredItem, 0, len(items))
	for _, item := range items {
		scored = append(scored, e.ScoreItem(item))
	}
	return scored
}

func (e *Engine) badgesFor(score float64, freshness models.Freshness) []string {
	badges := make([]string, 0, 1+len(e.badges))
	switch {
	case score > e.elite:
		badges = append(badges, BadgeElite)
	case score > e.high:
		badges = append(badges, BadgeHigh)
	}
	for _, b := range e.badges {
		if score < b.rule.MinScore {
			continue
		}
		if b.rule.Freshness != "" && models.Freshness(b.rule.Freshness) != freshness {
			continue
		}
		badges = append(badges, b.name)
	}
	return badges
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
