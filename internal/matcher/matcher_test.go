package matcher

import (
	"testing"
	"time"

	"prop-reconciler/internal/records"
)

func prop(mut func(*records.ProplineRecord)) records.ProplineRecord {
	p := records.ProplineRecord{
		CanonicalPlayerID: "amon ra st brown",
		League:            "nfl",
		Season:            2025,
		GameID:            "g100",
		CanonicalPropType: "receiving_yards",
		Line:              72.5,
		Direction:         records.DirectionOver,
		Sportsbook:        "bookA",
		Date:              "2025-01-05",
	}
	if mut != nil {
		mut(&p)
	}
	return p
}

func log(mut func(*records.GameLogRecord)) records.GameLogRecord {
	l := records.GameLogRecord{
		CanonicalPlayerID: "amon ra st brown",
		League:            "nfl",
		Season:            2025,
		GameID:            "g100",
		CanonicalPropType: "receiving_yards",
		ActualValue:       88,
		Date:              "2025-01-05",
		ConflictKey:       "log-key-1",
	}
	if mut != nil {
		mut(&l)
	}
	return l
}

func TestMatchExactPair(t *testing.T) {
	res := Match(
		[]records.ProplineRecord{prop(nil)},
		[]records.GameLogRecord{log(nil)},
	)
	if len(res.Matched) != 1 || len(res.UnmatchedProps) != 0 || len(res.UnmatchedLogs) != 0 {
		t.Fatalf("got %d matched, %d unmatched props, %d unmatched logs; want 1/0/0",
			len(res.Matched), len(res.UnmatchedProps), len(res.UnmatchedLogs))
	}
	m := res.Matched[0]
	if !m.Hit || m.Push {
		t.Errorf("88 over 72.5: got hit=%v push=%v, want hit", m.Hit, m.Push)
	}
	if m.Diff != 15.5 {
		t.Errorf("diff = %v, want 15.5", m.Diff)
	}
}

func TestMatchOutcomeDirections(t *testing.T) {
	tests := []struct {
		name      string
		direction string
		actual    float64
		wantHit   bool
		wantPush  bool
	}{
		{"over hit", records.DirectionOver, 80, true, false},
		{"over miss", records.DirectionOver, 60, false, false},
		{"under hit", records.DirectionUnder, 60, true, false},
		{"under miss", records.DirectionUnder, 80, false, false},
		{"push over", records.DirectionOver, 72.5, false, true},
		{"push under", records.DirectionUnder, 72.5, false, true},
		{"empty direction means over", "", 80, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := prop(func(p *records.ProplineRecord) { p.Direction = tt.direction })
			l := log(func(l *records.GameLogRecord) { l.ActualValue = tt.actual })
			res := Match([]records.ProplineRecord{p}, []records.GameLogRecord{l})
			if len(res.Matched) != 1 {
				t.Fatalf("got %d matched, want 1", len(res.Matched))
			}
			m := res.Matched[0]
			if m.Hit != tt.wantHit || m.Push != tt.wantPush {
				t.Errorf("got hit=%v push=%v, want hit=%v push=%v", m.Hit, m.Push, tt.wantHit, tt.wantPush)
			}
		})
	}
}

func TestMatchUnmatchedReasons(t *testing.T) {
	tests := []struct {
		name       string
		mutLog     func(*records.GameLogRecord)
		wantReason string
	}{
		{"different game", func(l *records.GameLogRecord) { l.GameID = "g999" }, records.UnmatchedNoCandidates},
		{"different player", func(l *records.GameLogRecord) { l.CanonicalPlayerID = "someone else" }, records.UnmatchedNoCandidates},
		{"different prop type", func(l *records.GameLogRecord) { l.CanonicalPropType = "receptions" }, records.UnmatchedPropType},
		{"different league", func(l *records.GameLogRecord) { l.League = "nba" }, records.UnmatchedLeague},
		{"different date", func(l *records.GameLogRecord) { l.Date = "2025-01-12" }, records.UnmatchedDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Match(
				[]records.ProplineRecord{prop(nil)},
				[]records.GameLogRecord{log(tt.mutLog)},
			)
			if len(res.Matched) != 0 {
				t.Fatalf("got %d matched, want 0", len(res.Matched))
			}
			if len(res.UnmatchedProps) != 1 {
				t.Fatalf("got %d unmatched props, want 1", len(res.UnmatchedProps))
			}
			if got := res.UnmatchedProps[0].Reason; got != tt.wantReason {
				t.Errorf("reason = %q, want %q", got, tt.wantReason)
			}
			if len(res.UnmatchedLogs) != 1 {
				t.Errorf("got %d unmatched logs, want 1", len(res.UnmatchedLogs))
			}
		})
	}
}

func TestMatchTolerantOfFieldCase(t *testing.T) {
	p := prop(func(p *records.ProplineRecord) {
		p.League = "NFL"
		p.Date = "01/05/2025"
	})
	res := Match([]records.ProplineRecord{p}, []records.GameLogRecord{log(nil)})
	if len(res.Matched) != 1 {
		t.Fatalf("league case and date format should not block a match; got %d matched", len(res.Matched))
	}
}

func TestMatchDuplicateLogsAnomaly(t *testing.T) {
	old := log(func(l *records.GameLogRecord) {
		l.ConflictKey = "log-old"
		l.ActualValue = 50
		l.CreatedAt = time.Date(2025, 1, 5, 20, 0, 0, 0, time.UTC)
	})
	fresh := log(func(l *records.GameLogRecord) {
		l.ConflictKey = "log-fresh"
		l.ActualValue = 90
		l.CreatedAt = time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	})

	res := Match([]records.ProplineRecord{prop(nil)}, []records.GameLogRecord{old, fresh})
	if len(res.Matched) != 1 {
		t.Fatalf("got %d matched, want 1", len(res.Matched))
	}
	if got := res.Matched[0].Log.ConflictKey; got != "log-fresh" {
		t.Errorf("chose %q, want the most recently created log-fresh", got)
	}
	if len(res.Anomalies) != 1 {
		t.Fatalf("got %d anomalies, want 1", len(res.Anomalies))
	}
	a := res.Anomalies[0]
	if a.Duplicates != 2 || a.ChosenKey != "log-fresh" {
		t.Errorf("unexpected anomaly report: %+v", a)
	}
	// Neither duplicate should come back as an unclaimed log.
	if len(res.UnmatchedLogs) != 0 {
		t.Errorf("got %d unmatched logs, want 0", len(res.UnmatchedLogs))
	}
}

func TestMatchStats(t *testing.T) {
	props := []records.ProplineRecord{
		prop(nil), // hit (88 > 72.5)
		prop(func(p *records.ProplineRecord) { p.GameID = "g200" }), // miss
		prop(func(p *records.ProplineRecord) { p.GameID = "g300" }), // push
		prop(func(p *records.ProplineRecord) { p.GameID = "g999" }), // unmatched
	}
	logs := []records.GameLogRecord{
		log(nil),
		log(func(l *records.GameLogRecord) { l.GameID = "g200"; l.ActualValue = 40 }),
		log(func(l *records.GameLogRecord) { l.GameID = "g300"; l.ActualValue = 72.5 }),
	}

	s := Match(props, logs).Stats()
	if s.TotalProps != 4 || s.TotalLogs != 3 || s.Matched != 3 {
		t.Fatalf("totals = %+v", s)
	}
	if s.MatchRate != 0.75 {
		t.Errorf("match rate = %v, want 0.75", s.MatchRate)
	}
	// One hit out of two decided outcomes; the push does not count.
	if s.MatchedHitRate != 0.5 {
		t.Errorf("matched hit rate = %v, want 0.5", s.MatchedHitRate)
	}
}

func TestMatchStatsCountsDuplicateLogs(t *testing.T) {
	old := log(func(l *records.GameLogRecord) {
		l.ConflictKey = "log-old"
		l.CreatedAt = time.Date(2025, 1, 5, 20, 0, 0, 0, time.UTC)
	})
	fresh := log(func(l *records.GameLogRecord) {
		l.ConflictKey = "log-fresh"
		l.CreatedAt = time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	})

	s := Match([]records.ProplineRecord{prop(nil)}, []records.GameLogRecord{old, fresh}).Stats()
	if s.TotalLogs != 2 {
		t.Errorf("total logs = %d, want 2: both duplicates were part of the input batch", s.TotalLogs)
	}
	if s.Matched != 1 {
		t.Errorf("matched = %d, want 1", s.Matched)
	}
}
