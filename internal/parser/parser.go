// Package parser wires the quality gate, content extraction, categorization
// and rule overlay into one classification pipeline and folds accepted
// activities into session state.
package parser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/pulse/internal/core/activity"
	"github.com/hay-kot/pulse/internal/core/categorize"
	"github.com/hay-kot/pulse/internal/core/config"
	"github.com/hay-kot/pulse/internal/core/content"
	"github.com/hay-kot/pulse/internal/core/quality"
	"github.com/hay-kot/pulse/internal/core/rules"
	"github.com/hay-kot/pulse/internal/core/session"
)

// Sentinel errors returned by Parse.
var (
	ErrLowQuality  = errors.New("quality below threshold")
	ErrParseFailed = errors.New("parse failed")
)

// pipeline is an immutable snapshot of everything derived from configuration.
// It is replaced as a whole by UpdateConfig.
type pipeline struct {
	cfg         config.Config
	quality     *quality.Analyzer
	extractor   *content.Extractor
	categorizer *categorize.Categorizer
	engine      *rules.Engine
}

// Statistics is a read-only view of parser counters.
type Statistics struct {
	TotalParsed    int64            `json:"total_parsed"`
	Rejected       int64            `json:"rejected"`
	Failed         int64            `json:"failed"`
	SessionCount   int              `json:"session_count"`
	AverageQuality float64          `json:"average_quality"`
	RuleHits       map[string]int64 `json:"rule_hits"`
}

// Parser classifies raw records and maintains session state.
type Parser struct {
	pipe     atomic.Pointer[pipeline]
	updateMu sync.Mutex

	sessions *session.Aggregator
	history  *quality.History
	log      zerolog.Logger
	now      func() time.Time

	parsed   atomic.Int64
	rejected atomic.Int64
	failed   atomic.Int64
}

// New creates a Parser from cfg. cfg is validated first.
func New(cfg *config.Config, log zerolog.Logger) (*Parser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	p := &Parser{
		sessions: session.NewAggregator(cfg.Session, log.With().Str("component", "sessions").Logger()),
		history:  quality.NewHistory(cfg.Quality.HistorySize),
		log:      log,
		now:      time.Now,
	}
	p.pipe.Store(p.build(*cfg))
	return p, nil
}

// WithClock overrides the time source used by the quality gate and session
// retention.
func (p *Parser) WithClock(now func() time.Time) *Parser {
	p.updateMu.Lock()
	defer p.updateMu.Unlock()

	p.now = now
	p.sessions.WithClock(now)
	p.pipe.Store(p.build(p.pipe.Load().cfg))
	return p
}

func (p *Parser) build(cfg config.Config) *pipeline {
	return &pipeline{
		cfg:         cfg,
		quality:     quality.NewAnalyzer(cfg.Quality, p.history).WithClock(p.now),
		extractor:   content.NewExtractor(cfg.Content, p.log.With().Str("component", "content").Logger()),
		categorizer: categorize.New(cfg.Categories),
		engine:      rules.NewEngine(cfg.Rules, p.log.With().Str("component", "rules").Logger()),
	}
}

// Config returns the configuration currently in effect.
func (p *Parser) Config() config.Config {
	return p.pipe.Load().cfg
}

// Sessions returns the session aggregator owned by the parser.
func (p *Parser) Sessions() *session.Aggregator {
	return p.sessions
}

// Rules returns the active rule set in evaluation order.
func (p *Parser) Rules() []rules.Rule {
	return p.pipe.Load().engine.Rules()
}

// Parse classifies raw and folds the result into its session. It returns
// ErrLowQuality when the record fails the quality gate and ErrParseFailed
// when classification panics. Neither error touches session state.
func (p *Parser) Parse(raw activity.RawRecord) (activity.ParsedActivity, error) {
	pa, err := p.Classify(raw)
	if err != nil {
		return activity.ParsedActivity{}, err
	}

	pa = p.sessions.Fold(pa)
	p.parsed.Add(1)
	return pa, nil
}

// Classify runs the pipeline up to, but not including, duration inference
// and the session fold. It has no side effects besides counters and the
// quality history.
func (p *Parser) Classify(raw activity.RawRecord) (pa activity.ParsedActivity, err error) {
	pipe := p.pipe.Load()

	defer func() {
		if r := recover(); r != nil {
			p.failed.Add(1)
			p.log.Error().Str("record_id", raw.ID).Interface("panic", r).Msg("classification failed")
			pa, err = activity.ParsedActivity{}, fmt.Errorf("record %q: %w: %v", raw.ID, ErrParseFailed, r)
		}
	}()

	report := pipe.quality.Analyze(raw)
	if report.Score < pipe.cfg.Quality.MinConfidence {
		p.rejected.Add(1)
		p.log.Debug().
			Str("record_id", raw.ID).
			Float64("score", report.Score).
			Strs("anomalies", report.Anomalies).
			Msg("record rejected")
		return activity.ParsedActivity{}, fmt.Errorf("record %q scored %.3f: %w", raw.ID, report.Score, ErrLowQuality)
	}

	typ := inferType(raw)
	block := pipe.extractor.Extract(raw)
	category := pipe.categorizer.Categorize(raw, typ)
	overlay := pipe.engine.Apply(raw)

	if overlay.Type != "" {
		typ = overlay.Type
	}
	if overlay.Category != "" {
		category = overlay.Category
	}
	if len(overlay.Content) > 0 {
		if block.Extracted == nil {
			block.Extracted = make(map[string]string, len(overlay.Content))
		}
		for k, v := range overlay.Content {
			block.Extracted[k] = v
		}
	}

	pa = activity.ParsedActivity{
		ID:          raw.ID,
		Timestamp:   raw.Time(),
		DeviceID:    raw.DeviceID,
		SessionID:   raw.SessionID,
		Type:        typ,
		Category:    category,
		Application: raw.Application(),
		WindowTitle: raw.WindowTitle(),
		Content:     block,
		Metadata: activity.Metadata{
			QualityScore: report.Score,
			RulesApplied: overlay.AppliedRules,
			Tags:         overlay.Tags,
			Anomalies:    report.Anomalies,
		},
		QualityScore: report.Score,
	}
	return pa, nil
}

// BatchParse parses raws in order and returns the accepted activities. A
// rejected or failed record is skipped without affecting the others. The
// context is checked between records; on cancellation the activities parsed
// so far are returned together with the context error.
func (p *Parser) BatchParse(ctx context.Context, raws []activity.RawRecord) ([]activity.ParsedActivity, error) {
	out := make([]activity.ParsedActivity, 0, len(raws))
	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		pa, err := p.Parse(raw)
		if err != nil {
			continue
		}
		out = append(out, pa)
	}

	p.log.Debug().Int("records", len(raws)).Int("accepted", len(out)).Msg("batch parsed")
	return out, nil
}

// Replay folds previously parsed activities back into session state without
// classifying them again. Stored durations are kept as they are.
func (p *Parser) Replay(acts []activity.ParsedActivity) {
	for _, a := range acts {
		p.sessions.AddActivity(a)
	}
}

// UpdateConfig merges partial into the current configuration and swaps the
// pipeline in one step. Records already being classified finish with the
// previous snapshot. The categorizer cache and rule hit counters start empty.
func (p *Parser) UpdateConfig(partial config.Partial) error {
	p.updateMu.Lock()
	defer p.updateMu.Unlock()

	next := p.pipe.Load().cfg.Merge(partial)
	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid config update: %w", err)
	}

	p.pipe.Store(p.build(next))
	p.log.Info().Int("rules", len(next.Rules)).Msg("configuration updated")
	return nil
}

// Statistics returns a snapshot of the parser counters.
func (p *Parser) Statistics() Statistics {
	return Statistics{
		TotalParsed:    p.parsed.Load(),
		Rejected:       p.rejected.Load(),
		Failed:         p.failed.Load(),
		SessionCount:   p.sessions.Count(),
		AverageQuality: p.history.Average(),
		RuleHits:       p.pipe.Load().engine.Hits(),
	}
}

// SessionSummaries returns the summaries of all live sessions, ordered by
// session id.
func (p *Parser) SessionSummaries() []session.Summary {
	ids := p.sessions.SessionIDs()
	out := make([]session.Summary, 0, len(ids))
	for _, id := range ids {
		if s, ok := p.sessions.Summary(id); ok {
			out = append(out, s)
		}
	}
	return out
}
