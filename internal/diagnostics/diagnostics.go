// Package diagnostics surfaces the non-fatal signals a reconciliation run
// produces: resolution ambiguities, self-registered identities, unmatched
// records and duplicate-log anomalies. Everything here is triage material
// for an operator, never an error path.
package diagnostics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"prop-reconciler/internal/alias"
	"prop-reconciler/internal/records"
)

// DefaultCooldown is the minimum time between repeated reports of the same
// ambiguity. The same raw name shows up on every ingestion cycle; once per
// cooldown window is enough.
const DefaultCooldown = 15 * time.Minute

// Reporter writes diagnostics to structured logs and, when a publisher is
// attached, to Redis streams for downstream consumers. It implements
// alias.Reporter.
type Reporter struct {
	log    *slog.Logger
	stream *StreamPublisher // may be nil

	mu       sync.Mutex
	lastSeen map[string]time.Time
	cooldown time.Duration
}

// NewReporter creates a reporter. stream may be nil to log only.
func NewReporter(log *slog.Logger, stream *StreamPublisher) *Reporter {
	return &Reporter{
		log:      log,
		stream:   stream,
		lastSeen: make(map[string]time.Time),
		cooldown: DefaultCooldown,
	}
}

var _ alias.Reporter = (*Reporter)(nil)

// SetCooldown overrides the dedupe window.
func (r *Reporter) SetCooldown(d time.Duration) {
	r.mu.Lock()
	r.cooldown = d
	r.mu.Unlock()
}

// AmbiguousPlayer reports a resolution where no signal discriminated between
// candidates. Deduped per (source, raw name) within the cooldown window.
func (r *Reporter) AmbiguousPlayer(a alias.Ambiguity) {
	if !r.shouldReport("ambiguous|" + a.Source + "|" + a.RawName) {
		return
	}
	r.log.Warn("ambiguous player resolution",
		"source", a.Source,
		"raw_name", a.RawName,
		"team_hint", a.TeamHint,
		"candidates", a.Candidates,
		"chosen", a.Chosen,
	)
	if r.stream != nil {
		r.stream.publishAmbiguity(context.Background(), a)
	}
}

// SelfRegisteredPlayer reports a brand-new identity the alias tables had
// never seen. These are the rows an operator should review and either bless
// or remap.
func (r *Reporter) SelfRegisteredPlayer(source, rawID, canonicalID string) {
	r.log.Info("self-registered player identity",
		"source", source,
		"raw_id", rawID,
		"canonical_id", canonicalID,
	)
	if r.stream != nil {
		r.stream.publishMissingPlayer(context.Background(), source, rawID, canonicalID)
	}
}

// Unmatched reports the leftovers of a matching pass, aggregated by reason
// so the log stays readable at batch volume.
func (r *Reporter) Unmatched(ctx context.Context, league string, props []records.UnmatchedProp, logs []records.UnmatchedLog) {
	if len(props) == 0 && len(logs) == 0 {
		return
	}
	byReason := make(map[string]int, len(props))
	for _, p := range props {
		byReason[p.Reason]++
	}
	r.log.Info("unmatched records",
		"league", league,
		"props", len(props),
		"logs", len(logs),
		"by_reason", byReason,
	)
	if r.stream != nil {
		if err := r.stream.PublishUnmatched(ctx, league, props, logs); err != nil {
			r.log.Error("publishing unmatched diagnostics", "error", err)
		}
	}
}

// Anomalies reports duplicate-log anomalies individually; they are rare and
// each one points at a concrete data-quality problem upstream.
func (r *Reporter) Anomalies(ctx context.Context, league string, anomalies []records.AnomalyReport) {
	for _, a := range anomalies {
		r.log.Warn("duplicate game logs for one outcome",
			"league", league,
			"join_key", a.JoinKey,
			"duplicates", a.Duplicates,
			"chosen_key", a.ChosenKey,
		)
	}
	if r.stream != nil && len(anomalies) > 0 {
		if err := r.stream.PublishAnomalies(ctx, league, anomalies); err != nil {
			r.log.Error("publishing anomaly diagnostics", "error", err)
		}
	}
}

// Summary publishes the per-run summary for dashboards. The summary is
// already in the run log, so with no stream attached this is a no-op.
func (r *Reporter) Summary(ctx context.Context, s SummaryPayload) {
	if r.stream == nil {
		return
	}
	if err := r.stream.PublishSummary(ctx, s); err != nil {
		r.log.Error("publishing run summary", "error", err)
	}
}

func (r *Reporter) shouldReport(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if last, ok := r.lastSeen[key]; ok && time.Since(last) < r.cooldown {
		return false
	}
	r.lastSeen[key] = time.Now()
	return true
}
