package normalize

import "strings"

// CleanPlayerName repairs the player display name as it arrives from the
// odds feed. Some feeds embed the market in the player field
// ("Tua Tagovailoa Passing Yards", "Passing Yards - Tua Tagovailoa") and
// some leave the name empty with only an underscore id. rawID is the
// source's player identifier, used as the fallback when the name is absent.
func CleanPlayerName(rawName, rawID, rawMarket string) string {
	name := strings.TrimSpace(rawName)

	if name == "" && rawID != "" {
		return titleFromID(rawID)
	}

	market := strings.TrimSpace(rawMarket)
	if market != "" {
		// "Passing Yards - Tua Tagovailoa"
		if rest, ok := cutPrefixFold(name, market); ok {
			name = strings.TrimLeft(rest, " -:")
		}
		// "Tua Tagovailoa Passing Yards"
		if rest, ok := cutSuffixFold(name, market); ok {
			name = strings.TrimRight(rest, " -:")
		}
	}

	name = strings.TrimSpace(name)
	if name == "" && rawID != "" {
		return titleFromID(rawID)
	}
	return name
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}

func cutSuffixFold(s, suffix string) (string, bool) {
	if len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix) {
		return s[:len(s)-len(suffix)], true
	}
	return s, false
}

// titleFromID turns an identifier like "aaron_rodgers" into "Aaron Rodgers".
func titleFromID(id string) string {
	parts := strings.FieldsFunc(id, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	return strings.Join(parts, " ")
}
