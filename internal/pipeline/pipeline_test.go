package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"testing"

	"prop-reconciler/internal/alias"
	"prop-reconciler/internal/records"
	"prop-reconciler/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(t *testing.T) (*Pipeline, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	resolver := alias.NewResolver(st, nil)
	if err := resolver.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	return New(st, resolver, nil, discardLogger()), st
}

func rawProp(mut func(*RawPropline)) RawPropline {
	p := RawPropline{
		Source:     "bookA",
		PlayerID:   "bdl-101",
		PlayerName: "J.J. McCarthy",
		Team:       "Minnesota Vikings",
		Opponent:   "Chicago Bears",
		League:     "NFL",
		Season:     2025,
		GameID:     "g100",
		Market:     "Passing Yards Over/Under",
		Line:       225.5,
		OverOdds:   -110,
		UnderOdds:  -110,
		Direction:  "over",
		Sportsbook: "bookA",
		Date:       "01/05/2025",
	}
	if mut != nil {
		mut(&p)
	}
	return p
}

func rawLog(mut func(*RawGameLog)) RawGameLog {
	l := RawGameLog{
		Source:      "statsfeed",
		PlayerID:    "",
		PlayerName:  "JJ McCarthy",
		Team:        "MIN",
		Opponent:    "CHI",
		League:      "nfl",
		Season:      2025,
		GameID:      "g100",
		Market:      "Passing Yards",
		ActualValue: 251,
		Date:        "2025-01-05",
	}
	if mut != nil {
		mut(&l)
	}
	return l
}

func TestRunMatchesAcrossMessyFeeds(t *testing.T) {
	p, st := newTestPipeline(t)

	sum, err := p.Run(context.Background(),
		[]RawPropline{rawProp(nil)},
		[]RawGameLog{rawLog(nil)},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The two feeds spell the player, market, date and league differently;
	// canonicalization must converge them onto one outcome.
	if sum.Matched != 1 {
		t.Fatalf("matched = %d, want 1 (summary %+v)", sum.Matched, sum)
	}
	if sum.UnmatchedProps != 0 || sum.UnmatchedLogs != 0 || sum.FailedRows != 0 || sum.Partial {
		t.Errorf("unexpected summary %+v", sum)
	}
	if sum.RunID == "" {
		t.Error("summary missing run id")
	}

	if len(st.Proplines) != 1 || len(st.GameLogs) != 1 || len(st.Outcomes) != 1 {
		t.Fatalf("stored %d proplines, %d logs, %d outcomes; want 1 each",
			len(st.Proplines), len(st.GameLogs), len(st.Outcomes))
	}
	for _, o := range st.Outcomes {
		if !o.Hit {
			t.Errorf("251 over 225.5 stored as miss: %+v", o)
		}
	}
	if len(st.Streaks) != 1 {
		t.Fatalf("stored %d streak rows, want 1", len(st.Streaks))
	}
	for _, s := range st.Streaks {
		if s.CurrentStreak != 1 || s.StreakDirection != records.StreakHit {
			t.Errorf("streak row %+v", s)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	p, st := newTestPipeline(t)
	props := []RawPropline{rawProp(nil)}
	logs := []RawGameLog{rawLog(nil)}

	if _, err := p.Run(context.Background(), props, logs); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := len(st.Proplines) + len(st.GameLogs) + len(st.Outcomes) + len(st.Streaks)

	sum, err := p.Run(context.Background(), props, logs)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	second := len(st.Proplines) + len(st.GameLogs) + len(st.Outcomes) + len(st.Streaks)

	if first != second {
		t.Errorf("re-ingesting identical data grew storage: %d -> %d rows", first, second)
	}
	if sum.Matched != 1 {
		t.Errorf("second run matched = %d, want 1", sum.Matched)
	}
}

func TestRunReportsUnmatched(t *testing.T) {
	p, _ := newTestPipeline(t)

	sum, err := p.Run(context.Background(),
		[]RawPropline{
			rawProp(nil),
			rawProp(func(rp *RawPropline) { rp.GameID = "g999"; rp.PlayerID = "bdl-102"; rp.PlayerName = "Sam Darnold" }),
		},
		[]RawGameLog{rawLog(nil)},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Matched != 1 || sum.UnmatchedProps != 1 {
		t.Errorf("summary %+v, want 1 matched and 1 unmatched prop", sum)
	}
}

func TestRunShardsLeaguesIndependently(t *testing.T) {
	p, st := newTestPipeline(t)

	props := []RawPropline{
		rawProp(nil),
		rawProp(func(rp *RawPropline) {
			rp.PlayerID = "bdl-500"
			rp.PlayerName = "Anthony Edwards"
			rp.Team = "MIN"
			rp.Opponent = "DAL"
			rp.League = "NBA"
			rp.Market = "Points"
			rp.Line = 27.5
		}),
	}
	logs := []RawGameLog{
		rawLog(nil),
		rawLog(func(rl *RawGameLog) {
			rl.PlayerID = "stats-500"
			rl.PlayerName = "Anthony Edwards"
			rl.Team = "MIN"
			rl.Opponent = "DAL"
			rl.League = "nba"
			rl.Market = "Points"
			rl.ActualValue = 31
		}),
	}

	sum, err := p.Run(context.Background(), props, logs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Matched != 2 {
		t.Fatalf("matched = %d, want 2 across leagues", sum.Matched)
	}
	if len(st.Streaks) != 2 {
		t.Errorf("stored %d streak rows, want 2", len(st.Streaks))
	}
}

func TestRunPersistsBatchLargerThanOneChunk(t *testing.T) {
	p, st := newTestPipeline(t)

	n := store.ChunkSize + 10
	props := make([]RawPropline, 0, n)
	for i := 0; i < n; i++ {
		props = append(props, rawProp(func(rp *RawPropline) {
			rp.GameID = "g" + strconv.Itoa(i)
		}))
	}

	sum, err := p.Run(context.Background(), props, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.FailedRows != 0 {
		t.Errorf("failed rows = %d, want 0", sum.FailedRows)
	}
	if len(st.Proplines) != n {
		t.Errorf("stored %d proplines, want %d", len(st.Proplines), n)
	}
}

// failingStore wraps a Memory store and rejects one table's upserts.
type failingStore struct {
	*store.Memory
}

func (f *failingStore) UpsertOutcomes(context.Context, []records.MatchedOutcome) error {
	return errors.New("connection reset")
}

func TestRunCountsFailedRows(t *testing.T) {
	st := &failingStore{Memory: store.NewMemory()}
	resolver := alias.NewResolver(st, nil)
	p := New(st, resolver, nil, discardLogger())

	sum, err := p.Run(context.Background(),
		[]RawPropline{rawProp(nil)},
		[]RawGameLog{rawLog(nil)},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Matched != 1 {
		t.Fatalf("matched = %d, want 1", sum.Matched)
	}
	if sum.FailedRows != 1 {
		t.Errorf("failed rows = %d, want the 1 outcome row that could not be written", sum.FailedRows)
	}
	// The other tables still got their rows.
	if len(st.Proplines) != 1 || len(st.GameLogs) != 1 {
		t.Errorf("stored %d proplines, %d logs; want 1 each", len(st.Proplines), len(st.GameLogs))
	}
}
