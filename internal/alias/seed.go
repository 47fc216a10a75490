package alias

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"prop-reconciler/internal/normalize"
	"prop-reconciler/internal/records"
)

// Seeds is the operator-maintained alias vocabulary loaded from a YAML file
// and applied to the store before a run. Seed rows use the same idempotent
// upsert path as lazy registration, so re-applying a seed file is a no-op.
type Seeds struct {
	Players   []PlayerSeed   `yaml:"players"`
	PropTypes []PropTypeSeed `yaml:"prop_types"`
}

type PlayerSeed struct {
	Source    string `yaml:"source"`
	RawID     string `yaml:"raw_id"`
	Name      string `yaml:"name"`
	Team      string `yaml:"team"`
	Canonical string `yaml:"canonical"`
}

type PropTypeSeed struct {
	Raw       string `yaml:"raw"`
	League    string `yaml:"league"`
	Canonical string `yaml:"canonical"`
}

// LoadSeeds parses a seed file.
func LoadSeeds(path string) (*Seeds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	var s Seeds
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing seed file %s: %w", path, err)
	}
	return &s, nil
}

// SeedStore is the slice of the row store seed application needs.
type SeedStore interface {
	RegisterPlayerAlias(ctx context.Context, alias records.PlayerAlias) (records.PlayerAlias, error)
	UpsertPropTypeAliases(ctx context.Context, rows []records.PropTypeAlias) error
}

// Apply upserts the seed rows into the store.
func (s *Seeds) Apply(ctx context.Context, st SeedStore) error {
	for _, p := range s.Players {
		rawID := p.RawID
		if rawID == "" {
			rawID = normalize.Name(p.Name)
		}
		canonical := p.Canonical
		if canonical == "" {
			canonical = normalize.Name(p.Name)
		}
		_, err := st.RegisterPlayerAlias(ctx, records.PlayerAlias{
			Source:            p.Source,
			RawID:             rawID,
			NormalizedName:    normalize.Name(p.Name),
			TeamHint:          normalize.Team(p.Team),
			CanonicalPlayerID: canonical,
		})
		if err != nil {
			return fmt.Errorf("seeding player alias %s/%s: %w", p.Source, rawID, err)
		}
	}

	if len(s.PropTypes) == 0 {
		return nil
	}
	rows := make([]records.PropTypeAlias, 0, len(s.PropTypes))
	for _, p := range s.PropTypes {
		rows = append(rows, records.PropTypeAlias{
			RawMarket: p.Raw,
			League:    p.League,
			Canonical: p.Canonical,
		})
	}
	if err := st.UpsertPropTypeAliases(ctx, rows); err != nil {
		return fmt.Errorf("seeding prop type aliases: %w", err)
	}
	return nil
}
