package gateway

import (
	"fmt"
	"strings"
	"time"

	"github.com/tathienbao/terminal-gateway/internal/types"
)

// Accepted layouts for caller-supplied dates. Layouts without a zone are
// read in the requested location.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// LoadLocation resolves an IANA timezone name. An empty name is UTC.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", types.ErrInvalidArgument, name)
	}
	return loc, nil
}

// ParseDate parses v in loc. Values carrying their own offset keep it; the
// result is always expressed in loc.
func ParseDate(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, v, loc)
		if err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid date %q", types.ErrInvalidArgument, v)
}

// TimeRange is a closed interval in a caller-chosen location.
type TimeRange struct {
	From     time.Time
	To       time.Time
	Location *time.Location
}

// ParseTimeRange parses from and to in the named timezone. from after to is
// rejected.
func ParseTimeRange(from, to, tz string) (TimeRange, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return TimeRange{}, err
	}
	f, err := ParseDate(from, loc)
	if err != nil {
		return TimeRange{}, err
	}
	t, err := ParseDate(to, loc)
	if err != nil {
		return TimeRange{}, err
	}
	if f.After(t) {
		return TimeRange{}, fmt.Errorf("%w: from_date %s is after to_date %s", types.ErrInvalidArgument,
			f.Format(time.RFC3339), t.Format(time.RFC3339))
	}
	return TimeRange{From: f, To: t, Location: loc}, nil
}
