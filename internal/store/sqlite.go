package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"prop-reconciler/internal/records"
)

// SQLite is the local/dev store backend.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and ensures the schema.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := createSQLiteTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func createSQLiteTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS proplines (
		conflict_key TEXT PRIMARY KEY,
		player_id TEXT NOT NULL,
		player_name TEXT,
		team TEXT,
		opponent TEXT,
		league TEXT NOT NULL,
		season INTEGER NOT NULL,
		game_id TEXT NOT NULL,
		prop_type TEXT NOT NULL,
		line REAL NOT NULL,
		over_odds REAL,
		under_odds REAL,
		direction TEXT,
		sportsbook TEXT NOT NULL,
		date TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS player_game_logs (
		conflict_key TEXT PRIMARY KEY,
		player_id TEXT NOT NULL,
		player_name TEXT,
		team TEXT,
		opponent TEXT,
		league TEXT NOT NULL,
		season INTEGER NOT NULL,
		game_id TEXT NOT NULL,
		prop_type TEXT NOT NULL,
		value REAL NOT NULL,
		date TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS matched_outcomes (
		prop_conflict_key TEXT PRIMARY KEY,
		log_conflict_key TEXT NOT NULL,
		player_id TEXT NOT NULL,
		league TEXT NOT NULL,
		prop_type TEXT NOT NULL,
		date TEXT NOT NULL,
		line REAL NOT NULL,
		actual REAL NOT NULL,
		hit INTEGER NOT NULL,
		push INTEGER NOT NULL,
		diff REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS streaks (
		player_id TEXT NOT NULL,
		prop_type TEXT NOT NULL,
		league TEXT NOT NULL,
		player_name TEXT,
		team TEXT,
		current_streak INTEGER NOT NULL,
		longest_streak INTEGER NOT NULL,
		streak_direction TEXT NOT NULL,
		streak_quality TEXT NOT NULL,
		betting_signal TEXT NOT NULL,
		total_games INTEGER NOT NULL,
		hit_rate REAL NOT NULL,
		hit_rate_l5 REAL NOT NULL,
		hit_rate_l10 REAL NOT NULL,
		hit_rate_l20 REAL NOT NULL,
		PRIMARY KEY (player_id, prop_type, league)
	);

	CREATE TABLE IF NOT EXISTS player_aliases (
		source TEXT NOT NULL,
		raw_id TEXT NOT NULL,
		normalized_name TEXT,
		team_hint TEXT,
		canonical_player_id TEXT NOT NULL,
		observations INTEGER DEFAULT 1,
		first_seen DATETIME,
		last_seen DATETIME,
		PRIMARY KEY (source, raw_id)
	);
	CREATE INDEX IF NOT EXISTS idx_player_aliases_name ON player_aliases(source, normalized_name);

	CREATE TABLE IF NOT EXISTS prop_type_aliases (
		raw_market TEXT NOT NULL,
		league TEXT NOT NULL DEFAULT '',
		canonical TEXT NOT NULL,
		PRIMARY KEY (raw_market, league)
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) UpsertProplines(ctx context.Context, rows []records.ProplineRecord) error {
	for _, batch := range Chunk(rows) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning propline upsert: %w", err)
		}
		for _, r := range batch {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO proplines (conflict_key, player_id, player_name, team, opponent, league, season, game_id, prop_type, line, over_odds, under_odds, direction, sportsbook, date)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(conflict_key) DO UPDATE SET
					line = excluded.line,
					over_odds = excluded.over_odds,
					under_odds = excluded.under_odds,
					direction = excluded.direction,
					player_name = excluded.player_name
			`, r.ConflictKey, r.CanonicalPlayerID, r.PlayerName, r.Team, r.Opponent, r.League, r.Season,
				r.GameID, r.CanonicalPropType, r.Line, r.OverOdds, r.UnderOdds, r.Direction, r.Sportsbook, r.Date)
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("upserting propline %s: %w", r.ConflictKey, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing propline upsert: %w", err)
		}
	}
	return nil
}

func (s *SQLite) UpsertGameLogs(ctx context.Context, rows []records.GameLogRecord) error {
	for _, batch := range Chunk(rows) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning game log upsert: %w", err)
		}
		for _, r := range batch {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO player_game_logs (conflict_key, player_id, player_name, team, opponent, league, season, game_id, prop_type, value, date)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(conflict_key) DO UPDATE SET
					value = excluded.value,
					player_name = excluded.player_name
			`, r.ConflictKey, r.CanonicalPlayerID, r.PlayerName, r.Team, r.Opponent, r.League, r.Season,
				r.GameID, r.CanonicalPropType, r.ActualValue, r.Date)
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("upserting game log %s: %w", r.ConflictKey, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing game log upsert: %w", err)
		}
	}
	return nil
}

func (s *SQLite) UpsertOutcomes(ctx context.Context, rows []records.MatchedOutcome) error {
	for _, batch := range Chunk(rows) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning outcome upsert: %w", err)
		}
		for _, r := range batch {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO matched_outcomes (prop_conflict_key, log_conflict_key, player_id, league, prop_type, date, line, actual, hit, push, diff)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(prop_conflict_key) DO UPDATE SET
					actual = excluded.actual,
					hit = excluded.hit,
					push = excluded.push,
					diff = excluded.diff
			`, r.Prop.ConflictKey, r.Log.ConflictKey, r.Prop.CanonicalPlayerID, r.Prop.League,
				r.Prop.CanonicalPropType, r.Prop.Date, r.Prop.Line, r.Log.ActualValue,
				boolToInt(r.Hit), boolToInt(r.Push), r.Diff)
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("upserting outcome %s: %w", r.Prop.ConflictKey, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing outcome upsert: %w", err)
		}
	}
	return nil
}

func (s *SQLite) UpsertStreaks(ctx context.Context, rows []records.StreakResult) error {
	for _, batch := range Chunk(rows) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning streak upsert: %w", err)
		}
		for _, r := range batch {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO streaks (player_id, prop_type, league, player_name, team, current_streak, longest_streak, streak_direction, streak_quality, betting_signal, total_games, hit_rate, hit_rate_l5, hit_rate_l10, hit_rate_l20)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(player_id, prop_type, league) DO UPDATE SET
					player_name = excluded.player_name,
					team = excluded.team,
					current_streak = excluded.current_streak,
					longest_streak = excluded.longest_streak,
					streak_direction = excluded.streak_direction,
					streak_quality = excluded.streak_quality,
					betting_signal = excluded.betting_signal,
					total_games = excluded.total_games,
					hit_rate = excluded.hit_rate,
					hit_rate_l5 = excluded.hit_rate_l5,
					hit_rate_l10 = excluded.hit_rate_l10,
					hit_rate_l20 = excluded.hit_rate_l20
			`, r.CanonicalPlayerID, r.CanonicalPropType, r.League, r.PlayerName, r.Team,
				r.CurrentStreak, r.LongestStreak, r.StreakDirection, r.StreakQuality, r.BettingSignal,
				r.TotalGames, r.HitRate, r.HitRateL5, r.HitRateL10, r.HitRateL20)
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("upserting streak for %s/%s/%s: %w", r.CanonicalPlayerID, r.CanonicalPropType, r.League, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing streak upsert: %w", err)
		}
	}
	return nil
}

func (s *SQLite) RegisterPlayerAlias(ctx context.Context, alias records.PlayerAlias) (records.PlayerAlias, error) {
	now := time.Now().UTC()
	// Insert-if-absent: an existing row keeps its canonical id, only the
	// observation count and last-seen advance.
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO player_aliases (source, raw_id, normalized_name, team_hint, canonical_player_id, observations, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(source, raw_id) DO UPDATE SET
			observations = player_aliases.observations + 1,
			last_seen = excluded.last_seen
		RETURNING canonical_player_id, observations, first_seen
	`, alias.Source, alias.RawID, alias.NormalizedName, alias.TeamHint, alias.CanonicalPlayerID, now, now)

	out := alias
	out.LastSeen = now
	if err := row.Scan(&out.CanonicalPlayerID, &out.Observations, &out.FirstSeen); err != nil {
		return records.PlayerAlias{}, fmt.Errorf("registering alias %s/%s: %w", alias.Source, alias.RawID, err)
	}
	return out, nil
}

func (s *SQLite) PlayerAliases(ctx context.Context) ([]records.PlayerAlias, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, raw_id, COALESCE(normalized_name, ''), COALESCE(team_hint, ''), canonical_player_id, observations, first_seen, last_seen
		FROM player_aliases
	`)
	if err != nil {
		return nil, fmt.Errorf("querying player aliases: %w", err)
	}
	defer rows.Close()

	var out []records.PlayerAlias
	for rows.Next() {
		var a records.PlayerAlias
		if err := rows.Scan(&a.Source, &a.RawID, &a.NormalizedName, &a.TeamHint,
			&a.CanonicalPlayerID, &a.Observations, &a.FirstSeen, &a.LastSeen); err != nil {
			return nil, fmt.Errorf("scanning player alias row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLite) UpsertPropTypeAliases(ctx context.Context, rows []records.PropTypeAlias) error {
	for _, r := range rows {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO prop_type_aliases (raw_market, league, canonical)
			VALUES (?, ?, ?)
			ON CONFLICT(raw_market, league) DO UPDATE SET canonical = excluded.canonical
		`, r.RawMarket, r.League, r.Canonical)
		if err != nil {
			return fmt.Errorf("upserting prop type alias %q: %w", r.RawMarket, err)
		}
	}
	return nil
}

func (s *SQLite) PropTypeAliases(ctx context.Context) ([]records.PropTypeAlias, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT raw_market, league, canonical FROM prop_type_aliases`)
	if err != nil {
		return nil, fmt.Errorf("querying prop type aliases: %w", err)
	}
	defer rows.Close()

	var out []records.PropTypeAlias
	for rows.Next() {
		var a records.PropTypeAlias
		if err := rows.Scan(&a.RawMarket, &a.League, &a.Canonical); err != nil {
			return nil, fmt.Errorf("scanning prop type alias row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
