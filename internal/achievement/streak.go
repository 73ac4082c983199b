package achievement

import (
	"sort"
	"strings"
	"time"

	"github.com/focusnest/study-service/internal/support"
)

// CurrentStreak counts consecutive calendar days with activity, walking back
// from today. A day without activity today yields 0. Empty or malformed dates
// are ignored.
func CurrentStreak(dates []string, today time.Time) int {
	days := make([]time.Time, 0, len(dates))
	for _, raw := range dates {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		day, err := support.ParseDay(raw)
		if err != nil {
			continue
		}
		days = append(days, day)
	}

	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	anchor := support.Day(today)
	streak := 0
	for _, day := range days {
		expected := anchor.AddDate(0, 0, -streak)
		switch {
		case day.Equal(expected):
			streak++
		case day.Before(expected):
			return streak
		}
		// later than expected: duplicate of a day already counted
	}
	return streak
}
