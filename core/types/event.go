// Package types holds the wire shapes shared by contracts and readers.
package types

import "maps"

// Event is the attribute form of a contract event. Attribute values are
// already rendered: addresses in qst1 form, amounts in base-10.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Attr returns the named attribute or "".
func (e *Event) Attr(name string) string {
	if e == nil {
		return ""
	}
	return e.Attributes[name]
}

// Clone returns a copy that shares no map with e.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	out := &Event{Type: e.Type, Attributes: maps.Clone(e.Attributes)}
	if out.Attributes == nil {
		out.Attributes = map[string]string{}
	}
	return out
}
