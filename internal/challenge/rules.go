package challenge

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// DateOf returns the calendar date of t in loc as YYYY-MM-DD.
func DateOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

// DaysBetween returns the whole calendar days from a to b.
func DaysBetween(a, b string) (int, error) {
	from, err := time.Parse(dateLayout, a)
	if err != nil {
		return 0, fmt.Errorf("challenge: parse date %q: %w", a, err)
	}
	to, err := time.Parse(dateLayout, b)
	if err != nil {
		return 0, fmt.Errorf("challenge: parse date %q: %w", b, err)
	}
	return int(to.Sub(from).Hours() / 24), nil
}

// ApplyCompletion advances progress when every task of today is done. It reports false and
// leaves progress untouched when today was already completed.
func ApplyCompletion(progress Progress, today string, now time.Time) (Progress, bool) {
	if progress.LastCompletedDate == today {
		return progress, false
	}

	streak := 1
	if progress.LastCompletedDate != "" {
		if diff, err := DaysBetween(progress.LastCompletedDate, today); err == nil && diff == 1 {
			streak = progress.Streak + 1
		}
	}

	completedAt := now.UTC()
	progress.Streak = streak
	progress.CurrentDay = min(progress.CurrentDay+1, ChallengeDays)
	progress.LastCompletedDate = today
	progress.CompletedAt = &completedAt
	return progress, true
}

// ReconcileOnLoad zeroes the streak when more than one calendar day has passed since the last
// completion. It reports whether progress changed.
func ReconcileOnLoad(progress Progress, today string) (Progress, bool) {
	if progress.LastCompletedDate == "" || progress.Streak == 0 {
		return progress, false
	}
	diff, err := DaysBetween(progress.LastCompletedDate, today)
	if err == nil && diff <= 1 {
		return progress, false
	}
	progress.Streak = 0
	return progress, true
}

// NextMidnight returns the first midnight in loc strictly after t.
func NextMidnight(t time.Time, loc *time.Location) time.Time {
	year, month, day := t.In(loc).Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, loc)
}

// FormatUntil renders a countdown as "Xh Ym", or "Ym" under an hour.
func FormatUntil(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// waitingForNextDay reports whether the day completed at completedAt is still today in loc.
func waitingForNextDay(progress Progress, now time.Time, loc *time.Location) bool {
	if progress.CompletedAt == nil {
		return false
	}
	return now.Before(NextMidnight(*progress.CompletedAt, loc))
}
