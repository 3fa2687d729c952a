package leaderboard

import "questchain/native/common"

// DefaultMaxTopEntries bounds each top list when Initialize receives zero.
const DefaultMaxTopEntries uint32 = 100

// Config holds the leaderboard parameters.
type Config struct {
	Admin         [20]byte
	MaxTopEntries uint32
	DailyPeriod   uint64
	WeeklyPeriod  uint64
	Paused        bool
}

// IsPaused implements common.PauseView.
func (c *Config) IsPaused() bool { return c != nil && c.Paused }

func (c *Config) lengths() common.PeriodLengths {
	return common.PeriodLengths{Daily: c.DailyPeriod, Weekly: c.WeeklyPeriod}
}

// Entry is a player's aggregated score within one period bucket.
type Entry struct {
	Player    [20]byte
	Score     uint64
	Timestamp uint64
	Period    common.Period
	PeriodID  uint64
}

func higherScore(a, b Entry) bool { return a.Score > b.Score }
