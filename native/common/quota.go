package common

import (
	"fmt"
	"math"
)

// ErrQuotaExceeded is returned when an addition would overrun the window cap.
var ErrQuotaExceeded = fmt.Errorf("quota exceeded: %w", ErrLimitExceeded)

// Quota caps how much of a resource may be used within a rolling window that
// restarts WindowSeconds after it opened.
type Quota struct {
	Limit         uint64
	WindowSeconds uint64
}

// QuotaNow captures the usage counters for the open window.
type QuotaNow struct {
	Used        uint64
	WindowStart uint64
}

// Roll returns prev reset to an empty window when the window has elapsed at
// now.
func (q Quota) Roll(now uint64, prev QuotaNow) QuotaNow {
	if q.WindowSeconds == 0 {
		return prev
	}
	if now < prev.WindowStart || now-prev.WindowStart >= q.WindowSeconds {
		return QuotaNow{WindowStart: now}
	}
	return prev
}

// CheckQuota verifies whether add fits within the configured quota. The
// returned QuotaNow reflects the updated counters when the quota is not
// exceeded; on failure prev is returned unchanged.
func CheckQuota(q Quota, now uint64, prev QuotaNow, add uint64) (QuotaNow, error) {
	next := q.Roll(now, prev)
	if next.Used > math.MaxUint64-add {
		return prev, ErrQuotaExceeded
	}
	next.Used += add
	if q.Limit > 0 && next.Used > q.Limit {
		return prev, ErrQuotaExceeded
	}
	return next, nil
}
