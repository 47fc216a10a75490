package normalize

import "testing"

func TestMarket(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"receiving yards with qualifier", "Player Receiving Yards Over/Under", "receiving_yards"},
		{"receiving beats generic yards", "Receiving Yards", "receiving_yards"},
		{"rec yds abbreviation", "Rec Yds", "receiving_yards"},
		{"rushing yards", "Rushing Yards", "rushing_yards"},
		{"passing yards", "passing_yards", "passing_yards"},
		{"passing tds", "Passing Touchdowns Over/Under", "passing_touchdowns"},
		{"receptions", "Receptions", "receptions"},
		{"interceptions not receptions", "Interceptions", "interceptions"},
		{"rush attempts to carries", "Rushing Attempts", "carries"},
		{"longest reception", "Longest Reception", "longest_reception"},
		{"anytime td", "Anytime Touchdown Yes/No", "anytime_touchdown"},
		{"first td", "To Record First Touchdown", "first_touchdown"},
		{"points", "Points Over/Under", "points"},
		{"threes", "3-Pointers Made", "three_pointers_made"},
		{"shots on goal beats goals", "Shots on Goal", "shots_on_goal"},
		{"goals", "Goals", "goals"},
		{"home runs beats runs", "Home Runs", "home_runs"},
		{"total bases", "Total Bases", "total_bases"},
		{"pitching strikeouts", "Pitching Strikeouts", "pitching_strikeouts"},
		{"strikeouts", "Strikeouts", "strikeouts"},
		{"turnovers survives over stripping", "Turnovers", "turnovers"},
		{"fantasy", "Fantasy Score", "fantasy_score"},
		{"unknown passes through cleaned", "Blocked Punts", "blocked_punts"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Market(tt.in)
			if got != tt.want {
				t.Errorf("Market(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMarketNeverGenericFallback(t *testing.T) {
	// An unrecognized market must come back as its own cleaned token, not a
	// catch-all bucket and not a mashup of two real canonical types.
	got := Market("Pylon Crossings")
	if got != "pylon_crossings" {
		t.Fatalf("Market(%q) = %q, want the cleaned token itself", "Pylon Crossings", got)
	}
}

func TestMarketIdempotent(t *testing.T) {
	inputs := []string{
		"Player Receiving Yards Over/Under",
		"Rushing Attempts",
		"Blocked Punts",
		"points",
	}
	for _, in := range inputs {
		once := Market(in)
		if twice := Market(once); twice != once {
			t.Errorf("Market not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}
