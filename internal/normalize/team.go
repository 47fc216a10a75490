package normalize

import "strings"

// Full team names mapped to the abbreviations the game-log feed uses. The
// odds feed sends full names, the log feed sends abbreviations; both sides
// funnel through here before being compared as a tie-break hint.
var teamAbbrevs = map[string]string{
	"arizona cardinals":    "ARI",
	"atlanta falcons":      "ATL",
	"baltimore ravens":     "BAL",
	"buffalo bills":        "BUF",
	"carolina panthers":    "CAR",
	"chicago bears":        "CHI",
	"cincinnati bengals":   "CIN",
	"cleveland browns":     "CLE",
	"dallas cowboys":       "DAL",
	"denver broncos":       "DEN",
	"detroit lions":        "DET",
	"green bay packers":    "GB",
	"houston texans":       "HOU",
	"indianapolis colts":   "IND",
	"jacksonville jaguars": "JAX",
	"kansas city chiefs":   "KC",
	"las vegas raiders":    "LV",
	"los angeles chargers": "LAC",
	"los angeles rams":     "LAR",
	"miami dolphins":       "MIA",
	"minnesota vikings":    "MIN",
	"new england patriots": "NE",
	"new orleans saints":   "NO",
	"new york giants":      "NYG",
	"new york jets":        "NYJ",
	"philadelphia eagles":  "PHI",
	"pittsburgh steelers":  "PIT",
	"san francisco 49ers":  "SF",
	"seattle seahawks":     "SEA",
	"tampa bay buccaneers": "TB",
	"tennessee titans":     "TEN",
	"washington commanders": "WAS",

	"boston celtics":        "BOS",
	"golden state warriors":  "GSW",
	"los angeles lakers":     "LAL",
	"milwaukee bucks":        "MIL",
	"new york knicks":        "NYK",
	"oklahoma city thunder":  "OKC",
	"philadelphia 76ers":     "PHI",
	"san antonio spurs":      "SAS",
}

// Team canonicalizes a team reference to an upper-case abbreviation. Known
// full names map through the table; anything already abbreviation-shaped is
// upper-cased and returned as-is.
func Team(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if abbr, ok := teamAbbrevs[strings.ToLower(s)]; ok {
		return abbr
	}
	return strings.ToUpper(s)
}
