package store

import (
	"context"
	"sync"
	"time"

	"prop-reconciler/internal/records"
)

// Memory is an in-memory Store used in tests and DSN-less local runs. It
// honors the same upsert semantics as the SQL backends.
type Memory struct {
	mu        sync.Mutex
	Proplines map[string]records.ProplineRecord
	GameLogs  map[string]records.GameLogRecord
	Outcomes  map[string]records.MatchedOutcome
	Streaks   map[string]records.StreakResult
	aliases   map[string]records.PlayerAlias // keyed source + "\x00" + rawID
	propTypes map[string]records.PropTypeAlias
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		Proplines: make(map[string]records.ProplineRecord),
		GameLogs:  make(map[string]records.GameLogRecord),
		Outcomes:  make(map[string]records.MatchedOutcome),
		Streaks:   make(map[string]records.StreakResult),
		aliases:   make(map[string]records.PlayerAlias),
		propTypes: make(map[string]records.PropTypeAlias),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) UpsertProplines(_ context.Context, rows []records.ProplineRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.Proplines[r.ConflictKey] = r
	}
	return nil
}

func (m *Memory) UpsertGameLogs(_ context.Context, rows []records.GameLogRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.GameLogs[r.ConflictKey] = r
	}
	return nil
}

func (m *Memory) UpsertOutcomes(_ context.Context, rows []records.MatchedOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.Outcomes[r.Prop.ConflictKey] = r
	}
	return nil
}

func (m *Memory) UpsertStreaks(_ context.Context, rows []records.StreakResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		key := r.CanonicalPlayerID + "\x00" + r.CanonicalPropType + "\x00" + r.League
		m.Streaks[key] = r
	}
	return nil
}

func (m *Memory) RegisterPlayerAlias(_ context.Context, alias records.PlayerAlias) (records.PlayerAlias, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := alias.Source + "\x00" + alias.RawID
	now := time.Now().UTC()
	if existing, ok := m.aliases[key]; ok {
		existing.Observations++
		existing.LastSeen = now
		m.aliases[key] = existing
		return existing, nil
	}

	alias.Observations = 1
	alias.FirstSeen = now
	alias.LastSeen = now
	m.aliases[key] = alias
	return alias, nil
}

func (m *Memory) PlayerAliases(_ context.Context) ([]records.PlayerAlias, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]records.PlayerAlias, 0, len(m.aliases))
	for _, a := range m.aliases {
		out = append(out, a)
	}
	return out, nil
}

func (m *Memory) UpsertPropTypeAliases(_ context.Context, rows []records.PropTypeAlias) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.propTypes[r.RawMarket+"\x00"+r.League] = r
	}
	return nil
}

func (m *Memory) PropTypeAliases(_ context.Context) ([]records.PropTypeAlias, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]records.PropTypeAlias, 0, len(m.propTypes))
	for _, a := range m.propTypes {
		out = append(out, a)
	}
	return out, nil
}
