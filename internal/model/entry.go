package model

// MessageID identifies one ingested entry. IDs are assigned by the message
// buffer in push order, strictly increasing, and are never reused.
type MessageID uint64

// Field is one name/value pair of a structured entry.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Entry is one ingested log line: either a Structured entry (decoded
// field/value pairs) or an Opaque entry (the raw bytes of a line that could
// not be decoded). Entries are immutable once constructed.
type Entry interface {
	entry()
}

// Structured is a decoded entry. Fields are sorted ascending by name and
// names are unique within the entry; this is an invariant of construction
// (see source.ParseLine), not something the store re-derives.
type Structured struct {
	Fields []Field
}

// Opaque is a line that could not be decoded as structured data.
type Opaque struct {
	Bytes []byte
}

func (Structured) entry() {}
func (Opaque) entry()     {}
