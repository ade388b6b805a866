package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Untagged is the sentinel label assigned when no tag rule matches
const Untagged = "untagged"

// Article represents one post extracted from an archive month page
type Article struct {
	ID          string `json:"id"`
	PublishedAt int64  `json:"published_at"`
	Body        string `json:"body"`
	Tags        Tags   `json:"tags,omitempty"`
}

// Published returns the publication timestamp as a time.Time
func (a Article) Published() time.Time {
	return time.UnixMilli(a.PublishedAt)
}

// Classified reports whether tags have been assigned
func (a Article) Classified() bool {
	return a.Tags != nil
}

// MonthKey identifies one archive page as YYYYMM
type MonthKey string

// NewMonthKey builds the key for a calendar month
func NewMonthKey(year int, month time.Month) MonthKey {
	return MonthKey(fmt.Sprintf("%04d%02d", year, int(month)))
}

// ParseMonthKey validates a YYYYMM string
func ParseMonthKey(s string) (MonthKey, error) {
	if len(s) != 6 {
		return "", fmt.Errorf("invalid month key %q: want YYYYMM", s)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return "", fmt.Errorf("invalid month key %q: want YYYYMM", s)
	}
	if m := n % 100; m < 1 || m > 12 {
		return "", fmt.Errorf("invalid month key %q: month out of range", s)
	}
	return MonthKey(s), nil
}

// Year returns the year part of the key
func (k MonthKey) Year() int {
	n, _ := strconv.Atoi(string(k))
	return n / 100
}

// Month returns the month part of the key
func (k MonthKey) Month() time.Month {
	n, _ := strconv.Atoi(string(k))
	return time.Month(n % 100)
}

// First returns midnight of the first day of the month in loc
func (k MonthKey) First(loc *time.Location) time.Time {
	return time.Date(k.Year(), k.Month(), 1, 0, 0, 0, 0, loc)
}

func (k MonthKey) String() string {
	return string(k)
}

// Tags is an ordered set of labels. Order is the rule table order and is
// significant for serialization; membership ignores it.
type Tags []string

// NewTags builds a Tags value, dropping duplicates while keeping first-seen order
func NewTags(labels ...string) Tags {
	seen := make(map[string]struct{}, len(labels))
	tags := make(Tags, 0, len(labels))
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		tags = append(tags, l)
	}
	return tags
}

// Has reports whether label is a member
func (t Tags) Has(label string) bool {
	for _, l := range t {
		if l == label {
			return true
		}
	}
	return false
}

// Len returns the number of labels including the sentinel
func (t Tags) Len() int {
	return len(t)
}

// Real returns the labels other than the sentinel
func (t Tags) Real() Tags {
	labels := make(Tags, 0, len(t))
	for _, l := range t {
		if l != Untagged {
			labels = append(labels, l)
		}
	}
	return labels
}

// IsUntagged reports whether no real label is present
func (t Tags) IsUntagged() bool {
	return len(t.Real()) == 0
}

// String joins the labels with single spaces
func (t Tags) String() string {
	return strings.Join(t, " ")
}
