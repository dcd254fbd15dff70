package types

import (
	"fmt"
	"strings"
)

// Timeframe is a bar period using the terminal's TIMEFRAME_* encoding.
type Timeframe int

const (
	TimeframeM1  Timeframe = 1
	TimeframeM2  Timeframe = 2
	TimeframeM3  Timeframe = 3
	TimeframeM4  Timeframe = 4
	TimeframeM5  Timeframe = 5
	TimeframeM6  Timeframe = 6
	TimeframeM10 Timeframe = 10
	TimeframeM12 Timeframe = 12
	TimeframeM15 Timeframe = 15
	TimeframeM20 Timeframe = 20
	TimeframeM30 Timeframe = 30
	TimeframeH1  Timeframe = 1 | 0x4000
	TimeframeH2  Timeframe = 2 | 0x4000
	TimeframeH3  Timeframe = 3 | 0x4000
	TimeframeH4  Timeframe = 4 | 0x4000
	TimeframeH6  Timeframe = 6 | 0x4000
	TimeframeH8  Timeframe = 8 | 0x4000
	TimeframeH12 Timeframe = 12 | 0x4000
	TimeframeD1  Timeframe = 24 | 0x4000
	TimeframeW1  Timeframe = 1 | 0x8000
	TimeframeMN1 Timeframe = 1 | 0xC000
)

var timeframeNames = []struct {
	name string
	tf   Timeframe
}{
	{"M1", TimeframeM1}, {"M2", TimeframeM2}, {"M3", TimeframeM3}, {"M4", TimeframeM4},
	{"M5", TimeframeM5}, {"M6", TimeframeM6}, {"M10", TimeframeM10}, {"M12", TimeframeM12},
	{"M15", TimeframeM15}, {"M20", TimeframeM20}, {"M30", TimeframeM30},
	{"H1", TimeframeH1}, {"H2", TimeframeH2}, {"H3", TimeframeH3}, {"H4", TimeframeH4},
	{"H6", TimeframeH6}, {"H8", TimeframeH8}, {"H12", TimeframeH12},
	{"D1", TimeframeD1}, {"W1", TimeframeW1}, {"MN1", TimeframeMN1},
}

func (t Timeframe) String() string {
	for _, n := range timeframeNames {
		if n.tf == t {
			return n.name
		}
	}
	return fmt.Sprintf("TIMEFRAME(%d)", int(t))
}

// ParseTimeframe parses names such as "M5", "h1" or "TIMEFRAME_D1".
func ParseTimeframe(v string) (Timeframe, error) {
	name := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(v)), "TIMEFRAME_")
	for _, n := range timeframeNames {
		if n.name == name {
			return n.tf, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidTimeframe, v)
}
