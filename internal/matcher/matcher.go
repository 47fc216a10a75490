// Package matcher joins a batch of sportsbook prop lines against a batch of
// recorded game logs. Match is a pure function of its two inputs: no store,
// no network, no hidden state, so every branch is reachable from literal
// fixtures.
package matcher

import (
	"strings"

	"prop-reconciler/internal/keys"
	"prop-reconciler/internal/mathutil"
	"prop-reconciler/internal/normalize"
	"prop-reconciler/internal/records"
)

// Result is everything one matching pass produces. Unmatched entries are
// diagnostics, not errors: a prop with no log usually means the game has not
// been played yet.
type Result struct {
	Matched        []records.MatchedOutcome
	UnmatchedProps []records.UnmatchedProp
	UnmatchedLogs  []records.UnmatchedLog
	Anomalies      []records.AnomalyReport
}

// Stats summarizes a matching pass for reporting.
type Stats struct {
	TotalProps     int
	TotalLogs      int
	Matched        int
	MatchRate      float64 // matched / total props
	MatchedHitRate float64 // hits / matched, pushes excluded
}

// Match reconciles proplines with gamelogs. Logs are indexed by
// (canonical player, game id); candidates are then filtered to those whose
// prop type, league (case-insensitive) and normalized date agree with the
// prop. One survivor is a match; zero is an UnmatchedProp with the first
// disagreeing field as reason; several is a duplicate-log anomaly resolved
// to the most recently created candidate. Logs no prop claimed come back as
// UnmatchedLogs.
func Match(proplines []records.ProplineRecord, gamelogs []records.GameLogRecord) Result {
	index := make(map[string][]int, len(gamelogs))
	for i, log := range gamelogs {
		k := joinKey(log.CanonicalPlayerID, log.GameID)
		index[k] = append(index[k], i)
	}
	claimed := make([]bool, len(gamelogs))

	var res Result
	for _, prop := range proplines {
		k := joinKey(prop.CanonicalPlayerID, prop.GameID)
		candidates := index[k]
		if len(candidates) == 0 {
			res.UnmatchedProps = append(res.UnmatchedProps, records.UnmatchedProp{
				Prop:   prop,
				Reason: records.UnmatchedNoCandidates,
			})
			continue
		}

		survivors, reason := filter(prop, gamelogs, candidates)
		if len(survivors) == 0 {
			res.UnmatchedProps = append(res.UnmatchedProps, records.UnmatchedProp{
				Prop:                prop,
				Reason:              reason,
				CandidatesInspected: len(candidates),
			})
			continue
		}

		chosen := survivors[0]
		if len(survivors) > 1 {
			// Duplicate game logs for the same player/game/stat. Take the
			// most recently created one and surface the anomaly.
			for _, i := range survivors[1:] {
				if gamelogs[i].CreatedAt.After(gamelogs[chosen].CreatedAt) {
					chosen = i
				}
			}
			res.Anomalies = append(res.Anomalies, records.AnomalyReport{
				JoinKey:    keys.JoinPrefix(prop.CanonicalPlayerID, prop.GameID, prop.CanonicalPropType, prop.League, prop.Season),
				Duplicates: len(survivors),
				ChosenKey:  gamelogs[chosen].ConflictKey,
			})
			for _, i := range survivors {
				claimed[i] = true
			}
		} else {
			claimed[chosen] = true
		}

		res.Matched = append(res.Matched, outcome(prop, gamelogs[chosen]))
	}

	for i, log := range gamelogs {
		if !claimed[i] {
			res.UnmatchedLogs = append(res.UnmatchedLogs, records.UnmatchedLog{Log: log})
		}
	}
	return res
}

// Stats computes summary statistics over a matching result.
func (r Result) Stats() Stats {
	s := Stats{
		TotalProps: len(r.Matched) + len(r.UnmatchedProps),
		TotalLogs:  len(r.Matched) + len(r.UnmatchedLogs),
		Matched:    len(r.Matched),
	}
	// A duplicate-log anomaly claims several logs for one match; add the
	// extras back so TotalLogs reflects the input batch.
	for _, a := range r.Anomalies {
		s.TotalLogs += a.Duplicates - 1
	}
	s.MatchRate = mathutil.Rate(s.Matched, s.TotalProps)
	hits, decided := 0, 0
	for _, m := range r.Matched {
		if m.Push {
			continue
		}
		decided++
		if m.Hit {
			hits++
		}
	}
	s.MatchedHitRate = mathutil.Rate(hits, decided)
	return s
}

// filter narrows candidates field by field. The reason reported for an empty
// result is the first field whose filter eliminated every remaining
// candidate, which is the detail an operator needs to triage the feed.
func filter(prop records.ProplineRecord, logs []records.GameLogRecord, candidates []int) ([]int, string) {
	stage := func(in []int, keep func(records.GameLogRecord) bool) []int {
		var out []int
		for _, i := range in {
			if keep(logs[i]) {
				out = append(out, i)
			}
		}
		return out
	}

	byType := stage(candidates, func(l records.GameLogRecord) bool {
		return l.CanonicalPropType == prop.CanonicalPropType
	})
	if len(byType) == 0 {
		return nil, records.UnmatchedPropType
	}

	byLeague := stage(byType, func(l records.GameLogRecord) bool {
		return strings.EqualFold(l.League, prop.League)
	})
	if len(byLeague) == 0 {
		return nil, records.UnmatchedLeague
	}

	propDate := normalize.Date(prop.Date)
	byDate := stage(byLeague, func(l records.GameLogRecord) bool {
		return normalize.Date(l.Date) == propDate
	})
	if len(byDate) == 0 {
		return nil, records.UnmatchedDate
	}
	return byDate, ""
}

func outcome(prop records.ProplineRecord, log records.GameLogRecord) records.MatchedOutcome {
	m := records.MatchedOutcome{
		Prop: prop,
		Log:  log,
		Diff: log.ActualValue - prop.Line,
	}
	switch {
	case log.ActualValue == prop.Line:
		m.Push = true
	case prop.Direction == records.DirectionUnder:
		m.Hit = log.ActualValue < prop.Line
	default:
		m.Hit = log.ActualValue > prop.Line
	}
	return m
}

func joinKey(playerID, gameID string) string {
	return playerID + "\x00" + gameID
}
