package streaks

import (
	"fmt"
	"testing"

	"prop-reconciler/internal/records"
)

// seq builds a matched-outcome history for one group from hit/miss values
// listed most recent first.
func seq(player, propType, league string, hits ...bool) []records.MatchedOutcome {
	out := make([]records.MatchedOutcome, len(hits))
	for i, h := range hits {
		date := fmt.Sprintf("2025-01-%02d", 28-i)
		out[i] = records.MatchedOutcome{
			Prop: records.ProplineRecord{
				CanonicalPlayerID: player,
				PlayerName:        player,
				CanonicalPropType: propType,
				League:            league,
				Date:              date,
			},
			Log: records.GameLogRecord{
				CanonicalPlayerID: player,
				CanonicalPropType: propType,
				League:            league,
				Date:              date,
			},
			Hit: h,
		}
	}
	return out
}

func TestComputeSingleGroup(t *testing.T) {
	tests := []struct {
		name        string
		hits        []bool
		wantStreak  int
		wantLongest int
		wantDir     string
		wantQuality string
		wantSignal  string
		wantRate    float64
	}{
		{
			name:        "hot streak broken earlier",
			hits:        []bool{true, true, true, false, true},
			wantStreak:  3,
			wantLongest: 3,
			wantDir:     records.StreakHit,
			wantQuality: QualityHot,
			wantSignal:  SignalRideWave, // rate 0.8 > 0.7
			wantRate:    0.8,
		},
		{
			name:        "six straight misses",
			hits:        []bool{false, false, false, false, false, false},
			wantStreak:  6,
			wantLongest: 6,
			wantDir:     records.StreakMiss,
			wantQuality: QualityVeryCold,
			wantSignal:  SignalAvoid, // rate 0 < 0.4
			wantRate:    0,
		},
		{
			name:        "extreme hot over ten games",
			hits:        []bool{true, true, true, true, true, true, true, false, true, false},
			wantStreak:  7,
			wantLongest: 7,
			wantDir:     records.StreakHit,
			wantQuality: QualityExtremeHot,
			wantSignal:  SignalFade, // rate 0.8 > 0.6 on a 5+ hit streak
			wantRate:    0.8,
		},
		{
			name:        "building",
			hits:        []bool{false, false, true},
			wantStreak:  2,
			wantLongest: 2,
			wantDir:     records.StreakMiss,
			wantQuality: QualityBuilding,
			wantSignal:  SignalNeutral,
			wantRate:    0.33,
		},
		{
			name:        "single game",
			hits:        []bool{true},
			wantStreak:  1,
			wantLongest: 1,
			wantDir:     records.StreakHit,
			wantQuality: QualitySingleGame,
			wantSignal:  SignalNeutral,
			wantRate:    1,
		},
		{
			name:        "buy low on an average rate",
			hits:        []bool{false, false, false, false, false, true, true, true, true, true, true},
			wantStreak:  5,
			wantLongest: 6,
			wantDir:     records.StreakMiss,
			wantQuality: QualityVeryCold,
			wantSignal:  SignalBuyLow, // rate 0.55 > 0.5 on a 5+ miss streak
			wantRate:    0.55,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(seq("p1", "receiving_yards", "nfl", tt.hits...))
			if len(got) != 1 {
				t.Fatalf("got %d results, want 1", len(got))
			}
			r := got[0]
			if r.CurrentStreak != tt.wantStreak {
				t.Errorf("current streak = %d, want %d", r.CurrentStreak, tt.wantStreak)
			}
			if r.LongestStreak != tt.wantLongest {
				t.Errorf("longest streak = %d, want %d", r.LongestStreak, tt.wantLongest)
			}
			if r.StreakDirection != tt.wantDir {
				t.Errorf("direction = %q, want %q", r.StreakDirection, tt.wantDir)
			}
			if r.StreakQuality != tt.wantQuality {
				t.Errorf("quality = %q, want %q", r.StreakQuality, tt.wantQuality)
			}
			if r.BettingSignal != tt.wantSignal {
				t.Errorf("signal = %q, want %q", r.BettingSignal, tt.wantSignal)
			}
			if r.HitRate != tt.wantRate {
				t.Errorf("hit rate = %v, want %v", r.HitRate, tt.wantRate)
			}
			if r.TotalGames != len(tt.hits) {
				t.Errorf("total games = %d, want %d", r.TotalGames, len(tt.hits))
			}
		})
	}
}

func TestComputeRollingRates(t *testing.T) {
	hits := []bool{true, true, true, true, true, true, true, false, true, false}
	r := Compute(seq("p1", "points", "nba", hits...))[0]
	if r.HitRateL5 != 1 {
		t.Errorf("L5 = %v, want 1", r.HitRateL5)
	}
	if r.HitRateL10 != 0.8 {
		t.Errorf("L10 = %v, want 0.8", r.HitRateL10)
	}
	// Only ten games exist, so L20 falls back to the full history.
	if r.HitRateL20 != 0.8 {
		t.Errorf("L20 = %v, want 0.8", r.HitRateL20)
	}
}

func TestComputeSkipsPushes(t *testing.T) {
	outcomes := seq("p1", "receptions", "nfl", true, true, true)
	// Splice a push between the two most recent hits; it must neither break
	// the streak nor count toward any rate.
	push := outcomes[0]
	push.Push = true
	push.Hit = false
	push.Prop.Date = "2025-01-27T12:00:00Z"
	push.Log.Date = push.Prop.Date
	all := append([]records.MatchedOutcome{outcomes[0], push}, outcomes[1:]...)

	got := Compute(all)
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
	r := got[0]
	if r.CurrentStreak != 3 || r.TotalGames != 3 || r.HitRate != 1 {
		t.Errorf("push leaked into the counts: %+v", r)
	}
}

func TestComputeGroupsAndOrdering(t *testing.T) {
	var all []records.MatchedOutcome
	all = append(all, seq("short", "points", "nba", true, false)...)
	all = append(all, seq("long", "points", "nba", false, false, false, false)...)
	all = append(all, seq("long", "rebounds", "nba", true, true, true)...)

	got := Compute(all)
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3 groups", len(got))
	}
	// Sorted by current streak descending.
	wantStreaks := []int{4, 3, 1}
	for i, want := range wantStreaks {
		if got[i].CurrentStreak != want {
			t.Errorf("result %d: current streak = %d, want %d", i, got[i].CurrentStreak, want)
		}
	}
	if got[0].CanonicalPlayerID != "long" || got[0].CanonicalPropType != "points" {
		t.Errorf("longest streak belongs to %s/%s", got[0].CanonicalPlayerID, got[0].CanonicalPropType)
	}
}
