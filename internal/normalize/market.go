package normalize

import (
	"regexp"
	"strings"
)

// marketRule maps a set of keywords that must all be present to a canonical
// prop type token. Rules are evaluated in order, compound stats before the
// generic word they contain, so "receiving yards" can never fall into a bare
// "yards" bucket. Keywords containing a space are matched as phrases;
// single-word keywords must match a whole token (plural-insensitive), which
// keeps "blocked punts" from collapsing into "blocks".
type marketRule struct {
	keywords  []string
	canonical string
}

// Ordered keyword-priority rules. Compound rules first.
var marketRules = []marketRule{
	// Football yardage and touchdown markets.
	{[]string{"receiving", "yard"}, "receiving_yards"},
	{[]string{"rushing", "yard"}, "rushing_yards"},
	{[]string{"passing", "yard"}, "passing_yards"},
	{[]string{"receiving", "touchdown"}, "receiving_touchdowns"},
	{[]string{"rushing", "touchdown"}, "rushing_touchdowns"},
	{[]string{"passing", "touchdown"}, "passing_touchdowns"},
	{[]string{"passing", "attempt"}, "passing_attempts"},
	{[]string{"passing", "completion"}, "passing_completions"},
	{[]string{"completion"}, "passing_completions"},
	{[]string{"rushing", "attempt"}, "carries"},
	{[]string{"carries"}, "carries"},
	{[]string{"longest", "reception"}, "longest_reception"},
	{[]string{"longest", "rushing"}, "longest_rush"},
	{[]string{"longest", "passing"}, "longest_pass"},
	{[]string{"reception"}, "receptions"},
	{[]string{"interception"}, "interceptions"},
	{[]string{"sack"}, "sacks"},
	{[]string{"tackle", "assist"}, "tackles_assists"},
	{[]string{"tackle"}, "tackles"},
	{[]string{"anytime", "touchdown"}, "anytime_touchdown"},
	{[]string{"first", "touchdown"}, "first_touchdown"},
	{[]string{"touchdown"}, "touchdowns"},
	{[]string{"to score"}, "anytime_touchdown"},
	{[]string{"field", "goal"}, "field_goals_made"},
	{[]string{"extra", "point"}, "extra_points_made"},

	// Basketball.
	{[]string{"three"}, "three_pointers_made"},
	{[]string{"pointer"}, "three_pointers_made"},
	{[]string{"free", "throw"}, "free_throws_made"},
	{[]string{"rebound"}, "rebounds"},
	{[]string{"steal"}, "steals"},
	{[]string{"block"}, "blocks"},
	{[]string{"triple double"}, "triple_double"},
	{[]string{"double double"}, "double_double"},

	// Hockey. Shots on goal must fire before the bare goals rule.
	{[]string{"shot", "goal"}, "shots_on_goal"},
	{[]string{"power play", "goal"}, "power_play_goals"},
	{[]string{"save"}, "saves"},
	{[]string{"goal"}, "goals"},

	// Baseball.
	{[]string{"home", "run"}, "home_runs"},
	{[]string{"total", "base"}, "total_bases"},
	{[]string{"pitching", "strikeout"}, "pitching_strikeouts"},
	{[]string{"strikeout"}, "strikeouts"},
	{[]string{"pitching", "out"}, "pitching_outs"},
	{[]string{"earned", "run"}, "earned_runs"},
	{[]string{"rbi"}, "rbis"},
	{[]string{"single"}, "singles"},
	{[]string{"double"}, "doubles"},
	{[]string{"triple"}, "triples"},
	{[]string{"walk"}, "walks"},
	{[]string{"hit"}, "hits"},
	{[]string{"run"}, "runs"},

	// Shared.
	{[]string{"fantasy"}, "fantasy_score"},
	{[]string{"turnover"}, "turnovers"},
	{[]string{"assist"}, "assists"},
	{[]string{"point"}, "points"},
}

// Feed abbreviations expanded before rule matching.
var marketAbbrevs = map[string]string{
	"yd":   "yards",
	"yds":  "yards",
	"td":   "touchdown",
	"tds":  "touchdowns",
	"pts":  "points",
	"reb":  "rebounds",
	"rebs": "rebounds",
	"ast":  "assists",
	"asts": "assists",
	"stl":  "steals",
	"blk":  "blocks",
	"rec":  "receiving",
	"pass": "passing",
	"rush": "rushing",
	"3pt":  "three",
	"3pm":  "three",
	"int":  "interceptions",
	"ints": "interceptions",
	"hr":   "home runs",
	"sog":  "shots on goal",
}

// Directional and period qualifiers stripped before rule matching. Whole
// words only, so "turnovers" is not mangled by the bare "over" alternative.
var marketQualifier = regexp.MustCompile(`\b(over/under|over under|o/u|yes/no|1st half|2nd half|first half|second half|to record|over|under|player|1h|2h)\b`)

var marketPunct = regexp.MustCompile(`[^a-z0-9 ]`)

// Market canonicalizes a raw market-type string to a lower-case
// underscore-delimited prop type token. Unrecognized input returns the
// cleaned token itself (e.g. "Blocked Punts" -> "blocked_punts"), never a
// generic bucket.
func Market(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "_", " ")

	s = marketQualifier.ReplaceAllString(s, " ")
	s = marketPunct.ReplaceAllString(s, " ")

	tokens := strings.Fields(s)
	for i, tok := range tokens {
		if full, ok := marketAbbrevs[tok]; ok {
			tokens[i] = full
		}
	}
	if len(tokens) == 0 {
		return ""
	}
	s = strings.Join(tokens, " ")
	tokens = strings.Fields(s) // abbreviations may expand to phrases

	for _, rule := range marketRules {
		if ruleMatches(s, tokens, rule.keywords) {
			return rule.canonical
		}
	}

	return strings.ReplaceAll(s, " ", "_")
}

func ruleMatches(joined string, tokens []string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			if !strings.Contains(joined, kw) {
				return false
			}
			continue
		}
		if !anyTokenIs(tokens, kw) {
			return false
		}
	}
	return true
}

func anyTokenIs(tokens []string, kw string) bool {
	want := singular(kw)
	for _, tok := range tokens {
		if singular(tok) == want {
			return true
		}
	}
	return false
}

// singular trims a plural "s" so "yards" matches "yard". Short tokens and
// "ss" endings are left alone.
func singular(s string) string {
	if len(s) >= 4 && strings.HasSuffix(s, "s") && !strings.HasSuffix(s, "ss") {
		return s[:len(s)-1]
	}
	return s
}
