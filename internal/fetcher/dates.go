package fetcher

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Layouts the archive has used for day headers
var headerLayouts = []string{
	"Mon Jan 2 2006",
	"Mon Jan _2 2006",
	"Mon, 2 Jan 2006",
	"January 2, 2006",
	"2006-01-02",
}

var germanHeader = regexp.MustCompile(`^(?:\p{L}+,?\s+)?(\d{1,2})\.\s*(\p{L}+)\s+(\d{4})$`)

var germanMonths = map[string]time.Month{
	"januar":    time.January,
	"jänner":    time.January,
	"februar":   time.February,
	"märz":      time.March,
	"maerz":     time.March,
	"april":     time.April,
	"mai":       time.May,
	"juni":      time.June,
	"juli":      time.July,
	"august":    time.August,
	"september": time.September,
	"oktober":   time.October,
	"november":  time.November,
	"dezember":  time.December,
}

// ParseHeaderDate parses a day header such as "Sat Jan 1 2022" or
// "Samstag, 1. Januar 2022" to midnight of that day in loc.
func ParseHeaderDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date header")
	}

	for _, layout := range headerLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	if m := germanHeader.FindStringSubmatch(s); m != nil {
		month, ok := germanMonths[strings.ToLower(m[2])]
		if !ok {
			return time.Time{}, fmt.Errorf("unknown month %q in header %q", m[2], s)
		}
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		t := time.Date(year, month, day, 0, 0, 0, 0, loc)
		if t.Day() != day {
			return time.Time{}, fmt.Errorf("invalid day in header %q", s)
		}
		return t, nil
	}

	t, err := dateparse.ParseIn(s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date header %q: %w", s, err)
	}
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, loc), nil
}
