package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"prop-reconciler/internal/alias"
	"prop-reconciler/internal/records"
)

// Stream keys consumed by the operator tooling.
const (
	StreamUnmatched      = "reconciler.unmatched"
	StreamAnomalies      = "reconciler.anomalies"
	StreamAmbiguities    = "reconciler.ambiguities"
	StreamMissingPlayers = "reconciler.missing_players"
	StreamSummaries      = "reconciler.summaries"
)

// streamMaxLen caps each diagnostics stream; entries beyond it are trimmed
// approximately by the server.
const streamMaxLen = 10000

// StreamPublisher writes diagnostics to Redis streams as JSON entries.
type StreamPublisher struct {
	client *redis.Client
}

// NewStreamPublisher wraps an already-connected client.
func NewStreamPublisher(client *redis.Client) *StreamPublisher {
	return &StreamPublisher{client: client}
}

type unmatchedPropPayload struct {
	League              string  `json:"league"`
	PlayerID            string  `json:"player_id"`
	GameID              string  `json:"game_id"`
	PropType            string  `json:"prop_type"`
	Sportsbook          string  `json:"sportsbook"`
	Date                string  `json:"date"`
	Line                float64 `json:"line"`
	Reason              string  `json:"reason"`
	CandidatesInspected int     `json:"candidates_inspected"`
}

type unmatchedLogPayload struct {
	League   string  `json:"league"`
	PlayerID string  `json:"player_id"`
	GameID   string  `json:"game_id"`
	PropType string  `json:"prop_type"`
	Date     string  `json:"date"`
	Actual   float64 `json:"actual_value"`
}

type anomalyPayload struct {
	League     string `json:"league"`
	JoinKey    string `json:"join_key"`
	Duplicates int    `json:"duplicates"`
	ChosenKey  string `json:"chosen_key"`
}

type ambiguityPayload struct {
	Source     string   `json:"source"`
	RawName    string   `json:"raw_name"`
	TeamHint   string   `json:"team_hint,omitempty"`
	Candidates []string `json:"candidates"`
	Chosen     string   `json:"chosen"`
}

type missingPlayerPayload struct {
	Source      string    `json:"source"`
	RawID       string    `json:"raw_id"`
	CanonicalID string    `json:"canonical_id"`
	SeenAt      time.Time `json:"seen_at"`
}

// SummaryPayload is the per-run record published for dashboards.
type SummaryPayload struct {
	RunID          string `json:"run_id"`
	Proplines      int    `json:"proplines"`
	GameLogs       int    `json:"game_logs"`
	Matched        int    `json:"matched"`
	UnmatchedProps int    `json:"unmatched_props"`
	UnmatchedLogs  int    `json:"unmatched_logs"`
	Anomalies      int    `json:"anomalies"`
	FailedRows     int    `json:"failed_rows"`
	Partial        bool   `json:"partial"`
	ElapsedMS      int64  `json:"elapsed_ms"`
}

// PublishUnmatched writes one entry per unmatched record, pipelined.
func (p *StreamPublisher) PublishUnmatched(ctx context.Context, league string, props []records.UnmatchedProp, logs []records.UnmatchedLog) error {
	pipe := p.client.Pipeline()
	for _, up := range props {
		p.add(ctx, pipe, StreamUnmatched, unmatchedPropPayload{
			League:              league,
			PlayerID:            up.Prop.CanonicalPlayerID,
			GameID:              up.Prop.GameID,
			PropType:            up.Prop.CanonicalPropType,
			Sportsbook:          up.Prop.Sportsbook,
			Date:                up.Prop.Date,
			Line:                up.Prop.Line,
			Reason:              up.Reason,
			CandidatesInspected: up.CandidatesInspected,
		})
	}
	for _, ul := range logs {
		p.add(ctx, pipe, StreamUnmatched, unmatchedLogPayload{
			League:   league,
			PlayerID: ul.Log.CanonicalPlayerID,
			GameID:   ul.Log.GameID,
			PropType: ul.Log.CanonicalPropType,
			Date:     ul.Log.Date,
			Actual:   ul.Log.ActualValue,
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publishing unmatched entries: %w", err)
	}
	return nil
}

// PublishAnomalies writes duplicate-log anomalies, pipelined.
func (p *StreamPublisher) PublishAnomalies(ctx context.Context, league string, anomalies []records.AnomalyReport) error {
	pipe := p.client.Pipeline()
	for _, a := range anomalies {
		p.add(ctx, pipe, StreamAnomalies, anomalyPayload{
			League:     league,
			JoinKey:    a.JoinKey,
			Duplicates: a.Duplicates,
			ChosenKey:  a.ChosenKey,
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publishing anomaly entries: %w", err)
	}
	return nil
}

// PublishSummary writes the per-run summary entry.
func (p *StreamPublisher) PublishSummary(ctx context.Context, s SummaryPayload) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamSummaries,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": string(data)},
	}).Err()
	if err != nil {
		return fmt.Errorf("publishing to stream %s: %w", StreamSummaries, err)
	}
	return nil
}

func (p *StreamPublisher) publishAmbiguity(ctx context.Context, a alias.Ambiguity) {
	data, err := json.Marshal(ambiguityPayload{
		Source:     a.Source,
		RawName:    a.RawName,
		TeamHint:   a.TeamHint,
		Candidates: a.Candidates,
		Chosen:     a.Chosen,
	})
	if err != nil {
		return
	}
	p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamAmbiguities,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": string(data)},
	})
}

func (p *StreamPublisher) publishMissingPlayer(ctx context.Context, source, rawID, canonicalID string) {
	data, err := json.Marshal(missingPlayerPayload{
		Source:      source,
		RawID:       rawID,
		CanonicalID: canonicalID,
		SeenAt:      time.Now().UTC(),
	})
	if err != nil {
		return
	}
	p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamMissingPlayers,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": string(data)},
	})
}

func (p *StreamPublisher) add(ctx context.Context, pipe redis.Pipeliner, stream string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": string(data)},
	})
}
