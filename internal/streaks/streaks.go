// Package streaks derives per-player analytics from matched outcomes:
// current and longest streaks, season and rolling hit rates, and the
// quality/signal labels built from them. Compute performs no I/O and is
// deterministic given its input.
package streaks

import (
	"sort"
	"strings"

	"prop-reconciler/internal/mathutil"
	"prop-reconciler/internal/normalize"
	"prop-reconciler/internal/records"
)

// Streak quality labels, assigned by threshold on the current streak length.
const (
	QualityExtremeHot  = "Extreme Hot"
	QualityExtremeCold = "Extreme Cold"
	QualityVeryHot     = "Very Hot"
	QualityVeryCold    = "Very Cold"
	QualityHot         = "Hot"
	QualityCold        = "Cold"
	QualityBuilding    = "Building"
	QualitySingleGame  = "Single Game"
)

// Betting signal labels.
const (
	SignalFade     = "Fade Candidate"
	SignalBuyLow   = "Buy Low Candidate"
	SignalRideWave = "Ride the Wave"
	SignalAvoid    = "Avoid"
	SignalNeutral  = "Neutral"
)

// Compute groups outcomes by (player, prop type, league) and produces one
// StreakResult per group, sorted by current streak descending. Pushes carry
// no hit/miss information and are dropped before any counting, so they never
// break a streak or dilute a rate.
func Compute(outcomes []records.MatchedOutcome) []records.StreakResult {
	groups := make(map[string][]records.MatchedOutcome)
	var order []string
	for _, o := range outcomes {
		if o.Push {
			continue
		}
		k := o.Prop.CanonicalPlayerID + "|" + o.Prop.CanonicalPropType + "|" + strings.ToLower(o.Prop.League)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], o)
	}

	results := make([]records.StreakResult, 0, len(groups))
	for _, k := range order {
		results = append(results, computeGroup(groups[k]))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CurrentStreak > results[j].CurrentStreak
	})
	return results
}

func computeGroup(games []records.MatchedOutcome) records.StreakResult {
	// Most recent first. Dates are canonical YYYY-MM-DD so they order
	// lexicographically.
	sort.SliceStable(games, func(i, j int) bool {
		return normalize.Date(games[i].Log.Date) > normalize.Date(games[j].Log.Date)
	})

	latest := games[0]
	current := 1
	for i := 1; i < len(games); i++ {
		if games[i].Hit != latest.Hit {
			break
		}
		current++
	}

	longest, run := 1, 1
	for i := 1; i < len(games); i++ {
		if games[i].Hit == games[i-1].Hit {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	total := len(games)
	hits := 0
	for _, g := range games {
		if g.Hit {
			hits++
		}
	}
	rate := float64(hits) / float64(total)

	direction := records.StreakMiss
	if latest.Hit {
		direction = records.StreakHit
	}

	return records.StreakResult{
		CanonicalPlayerID: latest.Prop.CanonicalPlayerID,
		PlayerName:        latest.Prop.PlayerName,
		Team:              latest.Prop.Team,
		CanonicalPropType: latest.Prop.CanonicalPropType,
		League:            latest.Prop.League,
		CurrentStreak:     current,
		LongestStreak:     longest,
		StreakDirection:   direction,
		StreakQuality:     quality(current, latest.Hit),
		BettingSignal:     signal(current, latest.Hit, rate),
		TotalGames:        total,
		HitRate:           mathutil.Round2(rate),
		HitRateL5:         rollingRate(games, 5),
		HitRateL10:        rollingRate(games, 10),
		HitRateL20:        rollingRate(games, 20),
	}
}

func quality(streak int, hit bool) string {
	switch {
	case streak >= 7 && hit:
		return QualityExtremeHot
	case streak >= 7:
		return QualityExtremeCold
	case streak >= 5 && hit:
		return QualityVeryHot
	case streak >= 5:
		return QualityVeryCold
	case streak >= 3 && hit:
		return QualityHot
	case streak >= 3:
		return QualityCold
	case streak >= 2:
		return QualityBuilding
	default:
		return QualitySingleGame
	}
}

// signal reads a long streak against the season rate: a long hit streak on
// an already-high rate is due for regression, a long miss streak on an
// average rate is underpriced.
func signal(streak int, hit bool, rate float64) string {
	switch {
	case streak >= 5 && hit && rate > 0.6:
		return SignalFade
	case streak >= 5 && !hit && rate > 0.5:
		return SignalBuyLow
	case streak >= 3 && hit && rate > 0.7:
		return SignalRideWave
	case streak >= 3 && !hit && rate < 0.4:
		return SignalAvoid
	default:
		return SignalNeutral
	}
}

// rollingRate is the hit rate over the n most recent games, the full group
// when it is shorter than n.
func rollingRate(games []records.MatchedOutcome, n int) float64 {
	if len(games) < n {
		n = len(games)
	}
	hits := 0
	for _, g := range games[:n] {
		if g.Hit {
			hits++
		}
	}
	return mathutil.Rate(hits, n)
}
