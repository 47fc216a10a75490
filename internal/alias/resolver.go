// Package alias resolves source-specific player identifiers and market
// strings to canonical ones. Resolution order is fixed: exact (source, raw
// id) alias, then (source, normalized name) alias, then self-registration of
// the normalized name as a new canonical identity. The alias table is an
// injected dependency with an explicit reload contract, not a process-wide
// global.
package alias

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"prop-reconciler/internal/normalize"
	"prop-reconciler/internal/records"
)

// Store is the slice of the row store the resolver needs.
type Store interface {
	RegisterPlayerAlias(ctx context.Context, alias records.PlayerAlias) (records.PlayerAlias, error)
	PlayerAliases(ctx context.Context) ([]records.PlayerAlias, error)
	PropTypeAliases(ctx context.Context) ([]records.PropTypeAlias, error)
}

// Ambiguity describes a resolution where multiple canonical identities
// matched and no signal discriminated. The documented tie-break still picks
// one; the ambiguity is reported, never swallowed.
type Ambiguity struct {
	Source     string
	RawName    string
	TeamHint   string
	Candidates []string
	Chosen     string
}

// Reporter receives resolution diagnostics. May be nil.
type Reporter interface {
	AmbiguousPlayer(a Ambiguity)
	SelfRegisteredPlayer(source, rawID, canonicalID string)
}

// Resolver maps raw identities to canonical ones against an in-memory
// snapshot of the alias tables, reloading from the store when the snapshot
// goes stale.
type Resolver struct {
	store    Store
	reporter Reporter
	maxAge   time.Duration

	mu         sync.RWMutex
	byRawID    map[string]records.PlayerAlias   // source + "\x00" + rawID
	byName     map[string][]records.PlayerAlias // source + "\x00" + normalized name
	propByRaw  map[string]string                // raw market + "\x00" + league
	lastReload time.Time
}

// DefaultReloadInterval bounds how stale the in-memory alias snapshot may
// get before a cache miss forces a reload.
const DefaultReloadInterval = 5 * time.Minute

// NewResolver creates a resolver over the given store. reporter may be nil.
func NewResolver(st Store, reporter Reporter) *Resolver {
	return &Resolver{
		store:     st,
		reporter:  reporter,
		maxAge:    DefaultReloadInterval,
		byRawID:   make(map[string]records.PlayerAlias),
		byName:    make(map[string][]records.PlayerAlias),
		propByRaw: make(map[string]string),
	}
}

// SetReloadInterval overrides the staleness bound on the snapshot.
func (r *Resolver) SetReloadInterval(d time.Duration) {
	r.mu.Lock()
	r.maxAge = d
	r.mu.Unlock()
}

// Reload replaces the in-memory snapshot with the store's current alias
// tables.
func (r *Resolver) Reload(ctx context.Context) error {
	players, err := r.store.PlayerAliases(ctx)
	if err != nil {
		return err
	}
	props, err := r.store.PropTypeAliases(ctx)
	if err != nil {
		return err
	}

	byRawID := make(map[string]records.PlayerAlias, len(players))
	byName := make(map[string][]records.PlayerAlias)
	for _, a := range players {
		byRawID[a.Source+"\x00"+a.RawID] = a
		if a.NormalizedName != "" {
			nk := a.Source + "\x00" + a.NormalizedName
			byName[nk] = append(byName[nk], a)
		}
	}
	propByRaw := make(map[string]string, len(props))
	for _, p := range props {
		propByRaw[strings.ToLower(strings.TrimSpace(p.RawMarket))+"\x00"+strings.ToLower(p.League)] = p.Canonical
	}

	r.mu.Lock()
	r.byRawID = byRawID
	r.byName = byName
	r.propByRaw = propByRaw
	r.lastReload = time.Now()
	r.mu.Unlock()
	return nil
}

// ResolvePlayer maps a raw (source, id, name) to a canonical player id.
// Never fails to produce an id: when the store is unreachable the normalized
// name is still returned, so a batch keeps flowing; the returned error then
// reports why the alias row could not be registered.
func (r *Resolver) ResolvePlayer(ctx context.Context, source, rawID, rawName, teamHint string) (string, error) {
	// Exact id alias is the highest-trust path.
	if rawID != "" {
		if a, ok := r.lookupRawID(source, rawID); ok {
			return a.CanonicalPlayerID, nil
		}
	}

	normName := normalize.Name(rawName)
	hint := normalize.Team(teamHint)

	if candidates := r.lookupName(ctx, source, normName); len(candidates) > 0 {
		chosen := r.pickCandidate(source, rawName, hint, candidates)
		// Remember the raw id so the next batch takes the exact-id path.
		if rawID != "" {
			return chosen, r.register(ctx, source, rawID, normName, hint, chosen, false)
		}
		return chosen, nil
	}

	if normName == "" {
		// Nothing to resolve against; fall back to the raw id itself.
		normName = strings.ToLower(strings.TrimSpace(rawID))
	}

	// Unknown identity: the normalized name becomes the canonical id. With
	// no raw id the name itself is the raw identifier for the alias row.
	rawKey := rawID
	if rawKey == "" {
		rawKey = normName
	}
	return normName, r.register(ctx, source, rawKey, normName, hint, normName, true)
}

func (r *Resolver) lookupRawID(source, rawID string) (records.PlayerAlias, bool) {
	r.mu.RLock()
	a, ok := r.byRawID[source+"\x00"+rawID]
	r.mu.RUnlock()
	return a, ok
}

func (r *Resolver) lookupName(ctx context.Context, source, normName string) []records.PlayerAlias {
	if normName == "" {
		return nil
	}
	key := source + "\x00" + normName

	r.mu.RLock()
	candidates := r.byName[key]
	stale := time.Since(r.lastReload) > r.maxAge
	r.mu.RUnlock()

	if len(candidates) == 0 && stale {
		// Cache miss on a stale snapshot: an operator may have added the
		// alias since the last load.
		if err := r.Reload(ctx); err == nil {
			r.mu.RLock()
			candidates = r.byName[key]
			r.mu.RUnlock()
		}
	}
	return candidates
}

// pickCandidate applies the tie-break order: matching team hint, then most
// historical observations. A tie on both is reported as ambiguous and broken
// lexicographically so repeated runs stay deterministic.
func (r *Resolver) pickCandidate(source, rawName, hint string, candidates []records.PlayerAlias) string {
	distinct := distinctCanonicals(candidates)
	if len(distinct) == 1 {
		return distinct[0]
	}

	pool := candidates
	if hint != "" {
		var hinted []records.PlayerAlias
		for _, c := range pool {
			if normalize.Team(c.TeamHint) == hint {
				hinted = append(hinted, c)
			}
		}
		if len(hinted) > 0 {
			pool = hinted
		}
	}

	best := pool[0]
	tied := false
	for _, c := range pool[1:] {
		switch {
		case c.Observations > best.Observations:
			best = c
			tied = false
		case c.Observations == best.Observations && c.CanonicalPlayerID != best.CanonicalPlayerID:
			tied = true
			if c.CanonicalPlayerID < best.CanonicalPlayerID {
				best = c
			}
		}
	}

	if tied && r.reporter != nil {
		r.reporter.AmbiguousPlayer(Ambiguity{
			Source:     source,
			RawName:    rawName,
			TeamHint:   hint,
			Candidates: distinct,
			Chosen:     best.CanonicalPlayerID,
		})
	}
	return best.CanonicalPlayerID
}

func distinctCanonicals(candidates []records.PlayerAlias) []string {
	seen := make(map[string]bool, len(candidates))
	var out []string
	for _, c := range candidates {
		if !seen[c.CanonicalPlayerID] {
			seen[c.CanonicalPlayerID] = true
			out = append(out, c.CanonicalPlayerID)
		}
	}
	sort.Strings(out)
	return out
}

// register lazily inserts an alias row and folds the result back into the
// snapshot. The store's insert-if-absent guarantees concurrent shards
// resolving the same raw pair converge on one canonical id.
func (r *Resolver) register(ctx context.Context, source, rawID, normName, hint, canonical string, selfRegistered bool) error {
	stored, err := r.store.RegisterPlayerAlias(ctx, records.PlayerAlias{
		Source:            source,
		RawID:             rawID,
		NormalizedName:    normName,
		TeamHint:          hint,
		CanonicalPlayerID: canonical,
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.byRawID[source+"\x00"+rawID] = stored
	if normName != "" {
		nk := source + "\x00" + normName
		r.byName[nk] = appendAlias(r.byName[nk], stored)
	}
	r.mu.Unlock()

	if selfRegistered && stored.Observations == 1 && r.reporter != nil {
		r.reporter.SelfRegisteredPlayer(source, rawID, stored.CanonicalPlayerID)
	}
	return nil
}

func appendAlias(list []records.PlayerAlias, a records.PlayerAlias) []records.PlayerAlias {
	for i, existing := range list {
		if existing.Source == a.Source && existing.RawID == a.RawID {
			list[i] = a
			return list
		}
	}
	return append(list, a)
}

// ResolveProp maps a raw market string to a canonical prop type. League-
// scoped aliases win over unscoped ones; with no alias row at all the
// deterministic market normalizer decides.
func (r *Resolver) ResolveProp(rawMarket, league string) string {
	raw := strings.ToLower(strings.TrimSpace(rawMarket))
	lg := strings.ToLower(strings.TrimSpace(league))

	r.mu.RLock()
	canonical, ok := r.propByRaw[raw+"\x00"+lg]
	if !ok {
		canonical, ok = r.propByRaw[raw+"\x00"]
	}
	r.mu.RUnlock()

	if ok {
		return canonical
	}
	return normalize.Market(rawMarket)
}
