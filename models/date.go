package models

import (
	"strings"
	"time"
)

// FlexDate is a calendar date that tolerates the wire formats the store is
// known to emit. Unparseable or empty values decode as absent rather than
// failing the whole record.
type FlexDate struct {
	t *time.Time
}

var flexDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
}

func NewFlexDate(t time.Time) FlexDate {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return FlexDate{t: &day}
}

func FlexDateFrom(t *time.Time) FlexDate {
	if t == nil {
		return FlexDate{}
	}
	return NewFlexDate(*t)
}

// Time returns the underlying date, nil when absent.
func (d FlexDate) Time() *time.Time {
	return d.t
}

func (d FlexDate) IsZero() bool {
	return d.t == nil
}

func (d FlexDate) String() string {
	if d.t == nil {
		return ""
	}
	return d.t.Format("2006-01-02")
}

func (d *FlexDate) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		d.t = nil
		return nil
	}
	for _, layout := range flexDateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			// Keep the wall-clock date the sender wrote, whatever its offset.
			y, m, dd := parsed.Date()
			day := time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
			d.t = &day
			return nil
		}
	}
	// Unknown format: treat as absent, never error.
	d.t = nil
	return nil
}

func (d FlexDate) MarshalJSON() ([]byte, error) {
	if d.t == nil {
		return []byte("null"), nil
	}
	return []byte(`"` + d.t.Format("2006-01-02") + `"`), nil
}
