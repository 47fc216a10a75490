// Package keys builds the deterministic composite keys used both as storage
// upsert keys and as the cross-source join keys. All key construction lives
// here so the upsert path and the matcher can never drift apart.
package keys

import (
	"strconv"
	"strings"
)

// Delimiter separates key fields. Field values are sanitized so it can never
// occur inside a field.
const Delimiter = "|"

// Propline builds the conflict key for a sportsbook prop line. The
// sportsbook is part of the key because the same line is quoted by multiple
// books.
func Propline(playerID, gameID, propType, league string, season int, sportsbook string) string {
	return join(playerID, gameID, propType, league, seasonField(season), sportsbook)
}

// GameLog builds the conflict key for an observed outcome. An outcome is
// book-independent, so the key omits the sportsbook.
func GameLog(playerID, gameID, propType, league string, season int) string {
	return join(playerID, gameID, propType, league, seasonField(season))
}

// JoinPrefix is the shared prefix of both key shapes: the fields on which a
// prop line and a game log must agree to describe the same observation. The
// matcher joins across the two shapes with this, never by full-key equality.
func JoinPrefix(playerID, gameID, propType, league string, season int) string {
	return join(playerID, gameID, propType, league, seasonField(season))
}

func join(fields ...string) string {
	sanitized := make([]string, len(fields))
	for i, f := range fields {
		sanitized[i] = sanitize(f)
	}
	return strings.Join(sanitized, Delimiter)
}

// sanitize lower-cases a field and replaces characters that would break key
// parsing. Identical logical inputs must always yield the identical string.
func sanitize(field string) string {
	f := strings.ToLower(strings.TrimSpace(field))
	f = strings.ReplaceAll(f, Delimiter, "_")
	f = strings.ReplaceAll(f, " ", "_")
	return f
}

func seasonField(season int) string {
	return strconv.Itoa(season)
}
