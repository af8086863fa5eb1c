package parser

import (
	"strings"
	"time"

	"fedquery/internal/types"
)

// nowFn is swapped in tests to pin temporal windows.
var nowFn = time.Now

func nowUTC() time.Time {
	return nowFn().UTC()
}

// temporalKeyword maps a token onto its TemporalKind.
func temporalKeyword(tok string) (types.TemporalKind, bool) {
	switch strings.ToLower(tok) {
	case "recent":
		return types.TemporalRecent, true
	case "today":
		return types.TemporalToday, true
	case "yesterday":
		return types.TemporalYesterday, true
	case "last_week":
		return types.TemporalLastWeek, true
	case "last_month":
		return types.TemporalLastMonth, true
	}
	return "", false
}

// Resolve expands a temporal keyword into a concrete UTC window relative
// to now.
func Resolve(kind types.TemporalKind, now time.Time) *types.TemporalRange {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch kind {
	case types.TemporalRecent:
		return &types.TemporalRange{Kind: kind, Start: now.Add(-24 * time.Hour), End: now}
	case types.TemporalToday:
		return &types.TemporalRange{Kind: kind, Start: midnight, End: now}
	case types.TemporalYesterday:
		start := midnight.AddDate(0, 0, -1)
		return &types.TemporalRange{
			Kind:  kind,
			Start: start,
			End:   start.Add(23*time.Hour + 59*time.Minute + 59*time.Second),
		}
	case types.TemporalLastWeek:
		return &types.TemporalRange{Kind: kind, Start: now.AddDate(0, 0, -7), End: now}
	case types.TemporalLastMonth:
		return &types.TemporalRange{Kind: kind, Start: now.AddDate(0, 0, -30), End: now}
	}
	return nil
}
