package events

import (
	"sync"

	"questchain/core/types"
)

// Record is a published event together with the invocation that produced it.
type Record struct {
	Seq          uint64       `json:"seq"`
	InvocationID string       `json:"invocationId,omitempty"`
	Timestamp    int64        `json:"timestamp"`
	Event        *types.Event `json:"event"`
}

// Feed keeps the most recent events in a fixed-size ring for readers such as
// the query API. It is safe for concurrent use.
type Feed struct {
	mu      sync.RWMutex
	records []Record
	next    int
	full    bool
	seq     uint64

	subs    map[uint64]*subscription
	nextSub uint64
}

type subscription struct {
	ch      chan Record
	dropped uint64
}

// NewFeed creates a feed retaining up to capacity records.
func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = 1
	}
	return &Feed{records: make([]Record, capacity)}
}

// Publish appends evt to the ring, overwriting the oldest record when full.
func (f *Feed) Publish(invocationID string, ts int64, evt Event) Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	rec := Record{Seq: f.seq, InvocationID: invocationID, Timestamp: ts, Event: Render(evt)}
	f.records[f.next] = rec
	f.next = (f.next + 1) % len(f.records)
	if f.next == 0 {
		f.full = true
	}
	for _, sub := range f.subs {
		select {
		case sub.ch <- rec:
		default:
			sub.dropped++
		}
	}
	return rec
}

// Subscribe returns a channel receiving every record published from now on.
// A subscriber that falls more than buffer records behind misses records
// rather than stalling publishers; Dropped reports how many. The returned
// cancel func closes the channel.
func (f *Feed) Subscribe(buffer int) (<-chan Record, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	sub := &subscription{ch: make(chan Record, buffer)}
	f.mu.Lock()
	if f.subs == nil {
		f.subs = make(map[uint64]*subscription)
	}
	id := f.nextSub
	f.nextSub++
	f.subs[id] = sub
	f.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(sub.ch)
		})
	}
}

// Dropped returns the total number of records subscribers missed.
func (f *Feed) Dropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var total uint64
	for _, sub := range f.subs {
		total += sub.dropped
	}
	return total
}

// Recent returns up to limit records, newest first. Records can be filtered
// by event type; an empty filter matches all.
func (f *Feed) Recent(limit int, eventType string) []Record {
	f.mu.RLock()
	defer f.mu.RUnlock()
	size := f.next
	if f.full {
		size = len(f.records)
	}
	if limit <= 0 || limit > size {
		limit = size
	}
	out := make([]Record, 0, limit)
	for i := 0; i < size && len(out) < limit; i++ {
		idx := (f.next - 1 - i + len(f.records)) % len(f.records)
		rec := f.records[idx]
		if eventType != "" && (rec.Event == nil || rec.Event.Type != eventType) {
			continue
		}
		out = append(out, rec)
	}
	return out
}
