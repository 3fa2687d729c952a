package events

// Buffer holds events emitted during an invocation until the invocation
// either commits (Drain) or rolls back (Truncate).
type Buffer struct {
	events []Event
}

// Emit implements Emitter.
func (b *Buffer) Emit(evt Event) {
	if evt == nil {
		return
	}
	b.events = append(b.events, evt)
}

// Mark returns the current buffer position.
func (b *Buffer) Mark() int { return len(b.events) }

// Truncate drops every event recorded after mark.
func (b *Buffer) Truncate(mark int) {
	if mark < 0 {
		mark = 0
	}
	if mark < len(b.events) {
		for i := mark; i < len(b.events); i++ {
			b.events[i] = nil
		}
		b.events = b.events[:mark]
	}
}

// Drain returns the buffered events and empties the buffer.
func (b *Buffer) Drain() []Event {
	out := b.events
	b.events = nil
	return out
}

// Len reports the number of buffered events.
func (b *Buffer) Len() int { return len(b.events) }
