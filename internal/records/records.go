// Package records defines the canonical record shapes shared by the
// reconciliation pipeline: sportsbook prop lines, official game logs, the
// matched outcomes joining the two, and the streak analytics derived from
// them. These shapes are the contract the storage tables must satisfy.
package records

import "time"

// Betting directions for a prop line.
const (
	DirectionOver  = "over"
	DirectionUnder = "under"
)

// Streak directions.
const (
	StreakHit  = "hit"
	StreakMiss = "miss"
)

// ProplineRecord is one sportsbook over/under offer on a player statistic.
// Upserted by ConflictKey on every ingestion cycle; odds are superseded in
// place as the line moves.
type ProplineRecord struct {
	CanonicalPlayerID string
	PlayerName        string // display name, not used for joining
	Team              string
	Opponent          string
	League            string
	Season            int
	GameID            string
	CanonicalPropType string
	Line              float64
	OverOdds          float64
	UnderOdds         float64
	Direction         string // "over" or "under"; empty means over
	Sportsbook        string
	Date              string // canonical YYYY-MM-DD
	ConflictKey       string
	CreatedAt         time.Time
}

// GameLogRecord is one officially recorded statistic for a player in a
// completed game. Created once per game/player/stat; immutable unless
// upstream issues a correction.
type GameLogRecord struct {
	CanonicalPlayerID string
	PlayerName        string
	Team              string
	Opponent          string
	League            string
	Season            int
	GameID            string
	CanonicalPropType string
	ActualValue       float64
	Date              string // canonical YYYY-MM-DD
	ConflictKey       string
	CreatedAt         time.Time
}

// MatchedOutcome pairs a prop line with its recorded outcome. It exists only
// when both sides agree on canonical player, prop type, league, and date.
type MatchedOutcome struct {
	Prop ProplineRecord
	Log  GameLogRecord
	Hit  bool    // outcome satisfied the betting direction against the line
	Push bool    // actual == line; excluded from hit-rate denominators
	Diff float64 // actual - line
}

// StreakResult is the per (player, prop type, league) analytics row.
// Recomputed wholesale from the full matched-outcome history on each run.
type StreakResult struct {
	CanonicalPlayerID string
	PlayerName        string
	Team              string
	CanonicalPropType string
	League            string
	CurrentStreak     int
	LongestStreak     int
	StreakDirection   string // "hit" or "miss"
	StreakQuality     string
	BettingSignal     string
	TotalGames        int
	HitRate           float64 // season, 0..1 rounded to two decimals
	HitRateL5         float64
	HitRateL10        float64
	HitRateL20        float64
}

// PlayerAlias maps a (source, raw identifier or name, team hint) to a
// canonical player id. For a given source a raw identifier maps to exactly
// one canonical id; last write wins on conflict.
type PlayerAlias struct {
	Source            string
	RawID             string
	NormalizedName    string
	TeamHint          string
	CanonicalPlayerID string
	Observations      int
	FirstSeen         time.Time
	LastSeen          time.Time
}

// PropTypeAlias maps a raw market string to a canonical prop type token
// (lower-case, underscore-delimited), optionally scoped by league.
type PropTypeAlias struct {
	RawMarket string
	League    string // empty means any league
	Canonical string
}

// Reasons attached to an UnmatchedProp.
const (
	UnmatchedNoCandidates = "no_candidates"
	UnmatchedPropType     = "prop_type"
	UnmatchedLeague       = "league"
	UnmatchedDate         = "date"
)

// UnmatchedProp is a prop line with no corresponding game log. Expected and
// common (the game may not have been played yet); kept for operator triage.
type UnmatchedProp struct {
	Prop                ProplineRecord
	Reason              string
	CandidatesInspected int
}

// UnmatchedLog is a game log no prop line claimed.
type UnmatchedLog struct {
	Log GameLogRecord
}

// AnomalyReport flags a data-quality anomaly: more than one game log
// satisfied a match. The most recently created candidate was used.
type AnomalyReport struct {
	JoinKey    string
	Duplicates int
	ChosenKey  string // conflict key of the candidate that was used
}
