package normalize

import (
	"strings"
	"time"
)

// Accepted upstream date layouts, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"20060102",
}

// Date collapses the calendar representations used by the upstream feeds
// into the single canonical YYYY-MM-DD form the conflict keys and the
// matcher's date filter rely on. Unparseable input is returned trimmed, so
// two sources that disagree only in formatting still compare equal while
// garbage stays visibly garbage.
func Date(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}
