package common

// Period identifies a leaderboard aggregation window.
type Period uint8

const (
	PeriodDaily Period = iota
	PeriodWeekly
	PeriodAllTime
)

// Default window lengths in seconds.
const (
	SecondsPerDay  uint64 = 86_400
	SecondsPerWeek uint64 = 604_800
	SecondsPerYear uint64 = 31_536_000
)

// Periods lists every period in submission order.
var Periods = []Period{PeriodDaily, PeriodWeekly, PeriodAllTime}

func (p Period) String() string {
	switch p {
	case PeriodDaily:
		return "daily"
	case PeriodWeekly:
		return "weekly"
	case PeriodAllTime:
		return "alltime"
	default:
		return "unknown"
	}
}

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	return p <= PeriodAllTime
}

// ParsePeriod maps a period name back to its value.
func ParsePeriod(name string) (Period, bool) {
	for _, p := range Periods {
		if p.String() == name {
			return p, true
		}
	}
	return 0, false
}

// PeriodID returns the bucket index of ts for a window of the given length.
// A zero length denotes a window that never rolls over.
func PeriodID(ts, length uint64) uint64 {
	if length == 0 {
		return 0
	}
	return ts / length
}

// PeriodLengths resolves each period to its bucket length.
type PeriodLengths struct {
	Daily  uint64
	Weekly uint64
}

// BucketFor returns the bucket index of ts for period p. All-time always maps
// to bucket 0.
func (l PeriodLengths) BucketFor(p Period, ts uint64) uint64 {
	switch p {
	case PeriodDaily:
		return PeriodID(ts, l.Daily)
	case PeriodWeekly:
		return PeriodID(ts, l.Weekly)
	default:
		return 0
	}
}

// Elapsed returns now-since, saturating at zero when the clock runs backwards.
func Elapsed(now, since uint64) uint64 {
	if now <= since {
		return 0
	}
	return now - since
}
