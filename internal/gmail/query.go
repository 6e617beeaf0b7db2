package gmail

import (
	"fmt"
	"strings"
	"time"
)

// DateRange is an inclusive pair of calendar days used to bound a search.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// MonthRange returns the first and last day of the month containing now.
func MonthRange(now time.Time) DateRange {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	last := first.AddDate(0, 1, -1)
	return DateRange{Start: first, End: last}
}

// ParseMonth parses "YYYY-MM" and returns that month's range.
func ParseMonth(s string) (DateRange, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return DateRange{}, fmt.Errorf("ParseMonth: invalid month %q (want YYYY-MM): %w", s, err)
	}
	return MonthRange(t), nil
}

// BuildQuery appends Gmail after:/before: operators to base.
// Gmail treats before: as exclusive, so mail received on r.End itself is not
// matched.
func BuildQuery(base string, r DateRange) string {
	return fmt.Sprintf("%s after:%s before:%s",
		strings.TrimSpace(base),
		r.Start.Format("2006/01/02"),
		r.End.Format("2006/01/02"),
	)
}
