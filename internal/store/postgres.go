package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"prop-reconciler/internal/records"
)

// Postgres is the production store backend.
type Postgres struct {
	db *sql.DB
}

// NewPostgres connects to databaseURL and ensures the schema.
func NewPostgres(databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	if err := migratePostgres(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func migratePostgres(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS proplines (
			conflict_key TEXT PRIMARY KEY,
			player_id TEXT NOT NULL,
			player_name TEXT,
			team TEXT,
			opponent TEXT,
			league TEXT NOT NULL,
			season INTEGER NOT NULL,
			game_id TEXT NOT NULL,
			prop_type TEXT NOT NULL,
			line DOUBLE PRECISION NOT NULL,
			over_odds DOUBLE PRECISION,
			under_odds DOUBLE PRECISION,
			direction TEXT,
			sportsbook TEXT NOT NULL,
			date TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_proplines_player ON proplines(player_id, game_id)`,
		`CREATE TABLE IF NOT EXISTS player_game_logs (
			conflict_key TEXT PRIMARY KEY,
			player_id TEXT NOT NULL,
			player_name TEXT,
			team TEXT,
			opponent TEXT,
			league TEXT NOT NULL,
			season INTEGER NOT NULL,
			game_id TEXT NOT NULL,
			prop_type TEXT NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			date TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_game_logs_player ON player_game_logs(player_id, game_id)`,
		`CREATE TABLE IF NOT EXISTS matched_outcomes (
			prop_conflict_key TEXT PRIMARY KEY,
			log_conflict_key TEXT NOT NULL,
			player_id TEXT NOT NULL,
			league TEXT NOT NULL,
			prop_type TEXT NOT NULL,
			date TEXT NOT NULL,
			line DOUBLE PRECISION NOT NULL,
			actual DOUBLE PRECISION NOT NULL,
			hit BOOLEAN NOT NULL,
			push BOOLEAN NOT NULL,
			diff DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS streaks (
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
			hit_rate DOUBLE PRECISION NOT NULL,
			hit_rate_l5 DOUBLE PRECISION NOT NULL,
			hit_rate_l10 DOUBLE PRECISION NOT NULL,
			hit_rate_l20 DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (player_id, prop_type, league)
		)`,
		`CREATE TABLE IF NOT EXISTS player_aliases (
			source TEXT NOT NULL,
			raw_id TEXT NOT NULL,
			normalized_name TEXT,
			team_hint TEXT,
			canonical_player_id TEXT NOT NULL,
			observations INTEGER DEFAULT 1,
			first_seen TIMESTAMP,
			last_seen TIMESTAMP,
			PRIMARY KEY (source, raw_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_player_aliases_name ON player_aliases(source, normalized_name)`,
		`CREATE TABLE IF NOT EXISTS prop_type_aliases (
			raw_market TEXT NOT NULL,
			league TEXT NOT NULL DEFAULT '',
			canonical TEXT NOT NULL,
			PRIMARY KEY (raw_market, league)
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) UpsertProplines(ctx context.Context, rows []records.ProplineRecord) error {
	for _, batch := range Chunk(rows) {
		tx, err := p.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning propline upsert: %w", err)
		}
		for _, r := range batch {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO proplines (conflict_key, player_id, player_name, team, opponent, league, season, game_id, prop_type, line, over_odds, under_odds, direction, sportsbook, date)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
				ON CONFLICT (conflict_key) DO UPDATE SET
					line = EXCLUDED.line,
					over_odds = EXCLUDED.over_odds,
					under_odds = EXCLUDED.under_odds,
					direction = EXCLUDED.direction,
					player_name = EXCLUDED.player_name
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

func (p *Postgres) UpsertGameLogs(ctx context.Context, rows []records.GameLogRecord) error {
	for _, batch := range Chunk(rows) {
		tx, err := p.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning game log upsert: %w", err)
		}
		for _, r := range batch {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO player_game_logs (conflict_key, player_id, player_name, team, opponent, league, season, game_id, prop_type, value, date)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
				ON CONFLICT (conflict_key) DO UPDATE SET
					value = EXCLUDED.value,
					player_name = EXCLUDED.player_name
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

func (p *Postgres) UpsertOutcomes(ctx context.Context, rows []records.MatchedOutcome) error {
	for _, batch := range Chunk(rows) {
		tx, err := p.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning outcome upsert: %w", err)
		}
		for _, r := range batch {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO matched_outcomes (prop_conflict_key, log_conflict_key, player_id, league, prop_type, date, line, actual, hit, push, diff)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
				ON CONFLICT (prop_conflict_key) DO UPDATE SET
					actual = EXCLUDED.actual,
					hit = EXCLUDED.hit,
					push = EXCLUDED.push,
					diff = EXCLUDED.diff
			`, r.Prop.ConflictKey, r.Log.ConflictKey, r.Prop.CanonicalPlayerID, r.Prop.League,
				r.Prop.CanonicalPropType, r.Prop.Date, r.Prop.Line, r.Log.ActualValue, r.Hit, r.Push, r.Diff)
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

func (p *Postgres) UpsertStreaks(ctx context.Context, rows []records.StreakResult) error {
	for _, batch := range Chunk(rows) {
		tx, err := p.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning streak upsert: %w", err)
		}
		for _, r := range batch {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO streaks (player_id, prop_type, league, player_name, team, current_streak, longest_streak, streak_direction, streak_quality, betting_signal, total_games, hit_rate, hit_rate_l5, hit_rate_l10, hit_rate_l20)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
				ON CONFLICT (player_id, prop_type, league) DO UPDATE SET
					player_name = EXCLUDED.player_name,
					team = EXCLUDED.team,
					current_streak = EXCLUDED.current_streak,
					longest_streak = EXCLUDED.longest_streak,
					streak_direction = EXCLUDED.streak_direction,
					streak_quality = EXCLUDED.streak_quality,
					betting_signal = EXCLUDED.betting_signal,
					total_games = EXCLUDED.total_games,
					hit_rate = EXCLUDED.hit_rate,
					hit_rate_l5 = EXCLUDED.hit_rate_l5,
					hit_rate_l10 = EXCLUDED.hit_rate_l10,
					hit_rate_l20 = EXCLUDED.hit_rate_l20
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

func (p *Postgres) RegisterPlayerAlias(ctx context.Context, alias records.PlayerAlias) (records.PlayerAlias, error) {
	now := time.Now().UTC()
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO player_aliases (source, raw_id, normalized_name, team_hint, canonical_player_id, observations, first_seen, last_seen)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $6)
		ON CONFLICT (source, raw_id) DO UPDATE SET
			observations = player_aliases.observations + 1,
			last_seen = EXCLUDED.last_seen
		RETURNING canonical_player_id, observations, first_seen
	`, alias.Source, alias.RawID, alias.NormalizedName, alias.TeamHint, alias.CanonicalPlayerID, now)

	out := alias
	out.LastSeen = now
	if err := row.Scan(&out.CanonicalPlayerID, &out.Observations, &out.FirstSeen); err != nil {
		return records.PlayerAlias{}, fmt.Errorf("registering alias %s/%s: %w", alias.Source, alias.RawID, err)
	}
	return out, nil
}

func (p *Postgres) PlayerAliases(ctx context.Context) ([]records.PlayerAlias, error) {
	rows, err := p.db.QueryContext(ctx, `
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

func (p *Postgres) UpsertPropTypeAliases(ctx context.Context, rows []records.PropTypeAlias) error {
	for _, r := range rows {
		_, err := p.db.ExecContext(ctx, `
			INSERT INTO prop_type_aliases (raw_market, league, canonical)
			VALUES ($1, $2, $3)
			ON CONFLICT (raw_market, league) DO UPDATE SET canonical = EXCLUDED.canonical
		`, r.RawMarket, r.League, r.Canonical)
		if err != nil {
			return fmt.Errorf("upserting prop type alias %q: %w", r.RawMarket, err)
		}
	}
	return nil
}

func (p *Postgres) PropTypeAliases(ctx context.Context) ([]records.PropTypeAlias, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT raw_market, league, canonical FROM prop_type_aliases`)
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
