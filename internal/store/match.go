package store

import "github.com/sievelabs/sieve/internal/model"

// Matches reports whether fields satisfy every condition. Both slices must be
// sorted ascending by name/key (the Structured and IndexMethod construction
// contracts), which lets a single forward cursor over fields serve all
// conditions: a two-pointer merge, O(len(fields) + len(conditions)).
func Matches(conditions []model.FieldCondition, fields []model.Field) bool {
	i := 0
	for _, cond := range conditions {
		// fields sorting before the condition key are irrelevant to this and
		// every later condition
		for i < len(fields) && fields[i].Name < cond.Key {
			i++
		}
		if i == len(fields) || fields[i].Name > cond.Key {
			return false // no field named cond.Key
		}
		if cond.Kind == model.KeyValue && fields[i].Value != cond.Value {
			return false
		}
		// cursor stays on the matched field: a later condition on the same
		// key must test the same field, since names are unique
	}
	return true
}
