// Package pipeline runs one reconciliation batch end to end: canonicalize
// raw feed rows, build conflict keys, match proplines against game logs per
// league shard, derive streak analytics, and persist everything through the
// store. A batch is independently reproducible from its inputs; every write
// is a keyed upsert.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"prop-reconciler/internal/alias"
	"prop-reconciler/internal/diagnostics"
	"prop-reconciler/internal/keys"
	"prop-reconciler/internal/matcher"
	"prop-reconciler/internal/normalize"
	"prop-reconciler/internal/records"
	"prop-reconciler/internal/store"
	"prop-reconciler/internal/streaks"
)

// RawPropline is one sportsbook offer as the ingestion feed delivers it,
// before any normalization.
type RawPropline struct {
	Source     string  `json:"source"`
	PlayerID   string  `json:"player_id"`
	PlayerName string  `json:"player_name"`
	Team       string  `json:"team"`
	Opponent   string  `json:"opponent"`
	League     string  `json:"league"`
	Season     int     `json:"season"`
	GameID     string  `json:"game_id"`
	Market     string  `json:"market"`
	Line       float64 `json:"line"`
	OverOdds   float64 `json:"over_odds"`
	UnderOdds  float64 `json:"under_odds"`
	Direction  string  `json:"direction"`
	Sportsbook string  `json:"sportsbook"`
	Date       string  `json:"date"`
}

// RawGameLog is one recorded statistic as the stats feed delivers it.
type RawGameLog struct {
	Source      string  `json:"source"`
	PlayerID    string  `json:"player_id"`
	PlayerName  string  `json:"player_name"`
	Team        string  `json:"team"`
	Opponent    string  `json:"opponent"`
	League      string  `json:"league"`
	Season      int     `json:"season"`
	GameID      string  `json:"game_id"`
	Market      string  `json:"market"`
	ActualValue float64 `json:"actual_value"`
	Date        string  `json:"date"`
}

// Summary reports what one run did. FailedRows counts rows whose upsert
// still failed after retries; they are safe to re-attempt on the next run.
type Summary struct {
	RunID          string
	Proplines      int
	GameLogs       int
	Matched        int
	UnmatchedProps int
	UnmatchedLogs  int
	Anomalies      int
	StreakRows     int
	FailedRows     int
	Partial        bool
	Elapsed        time.Duration
}

// Pipeline wires the stages together. Construct with New; all collaborators
// are required except reporter, which may be nil.
type Pipeline struct {
	store    store.Store
	resolver *alias.Resolver
	reporter *diagnostics.Reporter
	log      *slog.Logger
}

func New(st store.Store, resolver *alias.Resolver, reporter *diagnostics.Reporter, log *slog.Logger) *Pipeline {
	return &Pipeline{store: st, resolver: resolver, reporter: reporter, log: log}
}

type shardResult struct {
	league  string
	matched matcher.Result
	streaks []records.StreakResult
}

// Run processes one batch. The context bounds the whole batch; on expiry
// the remaining league shards are abandoned and the summary reports partial
// completion. Completed work is still persisted where the store allows it.
func (p *Pipeline) Run(ctx context.Context, rawProps []RawPropline, rawLogs []RawGameLog) (Summary, error) {
	start := time.Now()
	sum := Summary{RunID: uuid.NewString()}
	log := p.log.With("run_id", sum.RunID)

	log.Info("starting reconciliation run", "proplines", len(rawProps), "game_logs", len(rawLogs))

	proplines := p.canonicalizeProps(ctx, rawProps, log)
	gamelogs := p.canonicalizeLogs(ctx, rawLogs, log)
	sum.Proplines = len(proplines)
	sum.GameLogs = len(gamelogs)

	// Shard by league. Each shard is matched and analyzed in its own
	// goroutine; the alias tables were already consulted during
	// canonicalization, so shards share no mutable state.
	propShards := make(map[string][]records.ProplineRecord)
	logShards := make(map[string][]records.GameLogRecord)
	for _, pl := range proplines {
		k := strings.ToLower(pl.League)
		propShards[k] = append(propShards[k], pl)
	}
	for _, gl := range gamelogs {
		k := strings.ToLower(gl.League)
		logShards[k] = append(logShards[k], gl)
	}
	leagues := make(map[string]bool, len(propShards))
	for k := range propShards {
		leagues[k] = true
	}
	for k := range logShards {
		leagues[k] = true
	}

	results := make(chan shardResult, len(leagues))
	for league := range leagues {
		go func(league string) {
			res := matcher.Match(propShards[league], logShards[league])
			results <- shardResult{
				league:  league,
				matched: res,
				streaks: streaks.Compute(res.Matched),
			}
		}(league)
	}

	var (
		allMatched []records.MatchedOutcome
		allStreaks []records.StreakResult
	)
	for received := 0; received < len(leagues); received++ {
		select {
		case r := <-results:
			allMatched = append(allMatched, r.matched.Matched...)
			allStreaks = append(allStreaks, r.streaks...)
			sum.Matched += len(r.matched.Matched)
			sum.UnmatchedProps += len(r.matched.UnmatchedProps)
			sum.UnmatchedLogs += len(r.matched.UnmatchedLogs)
			sum.Anomalies += len(r.matched.Anomalies)
			if p.reporter != nil {
				p.reporter.Unmatched(ctx, r.league, r.matched.UnmatchedProps, r.matched.UnmatchedLogs)
				p.reporter.Anomalies(ctx, r.league, r.matched.Anomalies)
			}
		case <-ctx.Done():
			sum.Partial = true
			log.Warn("batch deadline hit, abandoning remaining shards",
				"completed", received, "total", len(leagues))
			received = len(leagues) // exits the loop
		}
	}
	sum.StreakRows = len(allStreaks)

	sum.FailedRows += persist(ctx, proplines, p.store.UpsertProplines, log, "proplines")
	sum.FailedRows += persist(ctx, gamelogs, p.store.UpsertGameLogs, log, "game_logs")
	sum.FailedRows += persist(ctx, allMatched, p.store.UpsertOutcomes, log, "outcomes")
	sum.FailedRows += persist(ctx, allStreaks, p.store.UpsertStreaks, log, "streaks")

	sum.Elapsed = time.Since(start)
	if p.reporter != nil {
		p.reporter.Summary(ctx, diagnostics.SummaryPayload{
			RunID:          sum.RunID,
			Proplines:      sum.Proplines,
			GameLogs:       sum.GameLogs,
			Matched:        sum.Matched,
			UnmatchedProps: sum.UnmatchedProps,
			UnmatchedLogs:  sum.UnmatchedLogs,
			Anomalies:      sum.Anomalies,
			FailedRows:     sum.FailedRows,
			Partial:        sum.Partial,
			ElapsedMS:      sum.Elapsed.Milliseconds(),
		})
	}
	log.Info("reconciliation run finished",
		"matched", sum.Matched,
		"unmatched_props", sum.UnmatchedProps,
		"unmatched_logs", sum.UnmatchedLogs,
		"anomalies", sum.Anomalies,
		"failed_rows", sum.FailedRows,
		"partial", sum.Partial,
		"elapsed", sum.Elapsed,
	)
	return sum, nil
}

func (p *Pipeline) canonicalizeProps(ctx context.Context, raws []RawPropline, log *slog.Logger) []records.ProplineRecord {
	now := time.Now().UTC()
	out := make([]records.ProplineRecord, 0, len(raws))
	for _, raw := range raws {
		name := normalize.CleanPlayerName(raw.PlayerName, raw.PlayerID, raw.Market)
		playerID, err := p.resolver.ResolvePlayer(ctx, raw.Source, raw.PlayerID, name, raw.Team)
		if err != nil {
			log.Warn("alias registration failed, continuing with resolved id",
				"source", raw.Source, "raw_id", raw.PlayerID, "error", err)
		}
		propType := p.resolver.ResolveProp(raw.Market, raw.League)
		date := normalize.Date(raw.Date)
		direction := strings.ToLower(strings.TrimSpace(raw.Direction))
		if direction == "" {
			direction = records.DirectionOver
		}
		out = append(out, records.ProplineRecord{
			CanonicalPlayerID: playerID,
			PlayerName:        name,
			Team:              normalize.Team(raw.Team),
			Opponent:          normalize.Team(raw.Opponent),
			League:            strings.ToLower(raw.League),
			Season:            raw.Season,
			GameID:            raw.GameID,
			CanonicalPropType: propType,
			Line:              raw.Line,
			OverOdds:          raw.OverOdds,
			UnderOdds:         raw.UnderOdds,
			Direction:         direction,
			Sportsbook:        raw.Sportsbook,
			Date:              date,
			ConflictKey:       keys.Propline(playerID, raw.GameID, propType, raw.League, raw.Season, raw.Sportsbook),
			CreatedAt:         now,
		})
	}
	return out
}

func (p *Pipeline) canonicalizeLogs(ctx context.Context, raws []RawGameLog, log *slog.Logger) []records.GameLogRecord {
	now := time.Now().UTC()
	out := make([]records.GameLogRecord, 0, len(raws))
	for _, raw := range raws {
		name := normalize.CleanPlayerName(raw.PlayerName, raw.PlayerID, raw.Market)
		playerID, err := p.resolver.ResolvePlayer(ctx, raw.Source, raw.PlayerID, name, raw.Team)
		if err != nil {
			log.Warn("alias registration failed, continuing with resolved id",
				"source", raw.Source, "raw_id", raw.PlayerID, "error", err)
		}
		propType := p.resolver.ResolveProp(raw.Market, raw.League)
		date := normalize.Date(raw.Date)
		out = append(out, records.GameLogRecord{
			CanonicalPlayerID: playerID,
			PlayerName:        name,
			Team:              normalize.Team(raw.Team),
			Opponent:          normalize.Team(raw.Opponent),
			League:            strings.ToLower(raw.League),
			Season:            raw.Season,
			GameID:            raw.GameID,
			CanonicalPropType: propType,
			ActualValue:       raw.ActualValue,
			Date:              date,
			ConflictKey:       keys.GameLog(playerID, raw.GameID, propType, raw.League, raw.Season),
			CreatedAt:         now,
		})
	}
	return out
}

// persist upserts rows in chunks with bounded retry. A chunk that fails all
// attempts is counted and skipped; the batch keeps going.
func persist[T any](ctx context.Context, rows []T, upsert func(context.Context, []T) error, log *slog.Logger, table string) int {
	failed := 0
	for _, chunk := range store.Chunk(rows) {
		chunk := chunk
		err := store.WithRetry(ctx, func(ctx context.Context) error { return upsert(ctx, chunk) })
		if err != nil {
			failed += len(chunk)
			log.Error("upsert failed after retries", "table", table, "rows", len(chunk), "error", err)
		}
	}
	return failed
}
