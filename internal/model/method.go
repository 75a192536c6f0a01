package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ConditionKind selects how a FieldCondition matches a field.
type ConditionKind uint8

const (
	// HasKey matches any entry containing the named field, regardless of value.
	HasKey ConditionKind = iota
	// KeyValue matches only entries whose named field equals the expected value.
	KeyValue
)

func (k ConditionKind) String() string {
	switch k {
	case HasKey:
		return "has_key"
	case KeyValue:
		return "key_value"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// MarshalJSON encodes the kind as its string name.
func (k ConditionKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind from its string name.
func (k *ConditionKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "has_key":
		*k = HasKey
	case "key_value":
		*k = KeyValue
	default:
		return fmt.Errorf("unknown condition kind %q", s)
	}
	return nil
}

// FieldCondition is a predicate on one field of a structured entry.
// Value is only meaningful when Kind is KeyValue.
type FieldCondition struct {
	Kind  ConditionKind `json:"kind"`
	Key   string        `json:"key"`
	Value string        `json:"value,omitempty"`
}

// Compare orders conditions primarily by key, then by kind, then by expected
// value. Ordering by key first keeps a sorted condition list scannable in the
// same order as a sorted field list.
func (c FieldCondition) Compare(other FieldCondition) int {
	if d := strings.Compare(c.Key, other.Key); d != 0 {
		return d
	}
	if c.Kind != other.Kind {
		if c.Kind < other.Kind {
			return -1
		}
		return 1
	}
	return strings.Compare(c.Value, other.Value)
}

// IndexMethod is the identity of a secondary index: an ordered sequence of
// field conditions. Construct with NewIndexMethod so the condition order is
// canonical; two methods are the same index iff their canonical Key()s match.
type IndexMethod struct {
	Conditions []FieldCondition `json:"conditions"`
}

// NewIndexMethod canonicalizes the given conditions into an IndexMethod.
// The input slice is not retained. A stray value on a HasKey condition is
// dropped, since it plays no part in matching. Duplicate conditions are kept
// as-is; sorting alone makes equal condition sets compare equal.
func NewIndexMethod(conditions []FieldCondition) IndexMethod {
	sorted := make([]FieldCondition, len(conditions))
	copy(sorted, conditions)
	for i := range sorted {
		if sorted[i].Kind == HasKey {
			sorted[i].Value = ""
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Compare(sorted[j]) < 0
	})
	return IndexMethod{Conditions: sorted}
}

// Key returns the canonical identity string of the method, used for registry
// lookup and deduplication. Keys and values are length-prefixed so no
// condition content, separator bytes included, can make two distinct
// condition lists collide.
func (m IndexMethod) Key() string {
	var sb strings.Builder
	for _, c := range m.Conditions {
		sb.WriteByte(byte(c.Kind) + '0')
		sb.WriteString(strconv.Itoa(len(c.Key)))
		sb.WriteByte(':')
		sb.WriteString(c.Key)
		sb.WriteString(strconv.Itoa(len(c.Value)))
		sb.WriteByte(':')
		sb.WriteString(c.Value)
	}
	return sb.String()
}

// String renders the method for logs, e.g. `[level request_id=abc]`.
func (m IndexMethod) String() string {
	parts := make([]string, len(m.Conditions))
	for i, c := range m.Conditions {
		if c.Kind == HasKey {
			parts[i] = c.Key
		} else {
			parts[i] = c.Key + "=" + c.Value
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}
