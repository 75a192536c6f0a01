package store

import (
	"testing"

	"github.com/sievelabs/sieve/internal/model"
)

func fields(pairs ...string) []model.Field {
	// pairs alternate name, value and must already be sorted by name
	fs := make([]model.Field, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		fs = append(fs, model.Field{Name: pairs[i], Value: pairs[i+1]})
	}
	return fs
}

func hasKey(key string) model.FieldCondition {
	return model.FieldCondition{Kind: model.HasKey, Key: key}
}

func keyValue(key, value string) model.FieldCondition {
	return model.FieldCondition{Kind: model.KeyValue, Key: key, Value: value}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name       string
		conditions []model.FieldCondition
		fields     []model.Field
		want       bool
	}{
		{
			name:       "has_key present",
			conditions: []model.FieldCondition{hasKey("level")},
			fields:     fields("level", "info"),
			want:       true,
		},
		{
			name:       "has_key present among others",
			conditions: []model.FieldCondition{hasKey("level")},
			fields:     fields("level", "error", "msg", "x"),
			want:       true,
		},
		{
			name:       "has_key absent",
			conditions: []model.FieldCondition{hasKey("level")},
			fields:     fields("msg", "x"),
			want:       false,
		},
		{
			name:       "key_value equal",
			conditions: []model.FieldCondition{keyValue("level", "error")},
			fields:     fields("level", "error"),
			want:       true,
		},
		{
			name:       "key_value different value",
			conditions: []model.FieldCondition{keyValue("level", "error")},
			fields:     fields("level", "info"),
			want:       false,
		},
		{
			name:       "key_value absent key",
			conditions: []model.FieldCondition{keyValue("level", "error")},
			fields:     fields("msg", "x"),
			want:       false,
		},
		{
			name:       "conjunction matches with extra fields",
			conditions: []model.FieldCondition{hasKey("a"), keyValue("b", "2")},
			fields:     fields("a", "1", "b", "2", "c", "3"),
			want:       true,
		},
		{
			name:       "conjunction missing second key",
			conditions: []model.FieldCondition{hasKey("a"), keyValue("b", "2")},
			fields:     fields("a", "1", "c", "3"),
			want:       false,
		},
		{
			name:       "conjunction wrong second value",
			conditions: []model.FieldCondition{hasKey("a"), keyValue("b", "2")},
			fields:     fields("a", "1", "b", "3"),
			want:       false,
		},
		{
			name:       "two conditions on the same key",
			conditions: []model.FieldCondition{hasKey("a"), keyValue("a", "1")},
			fields:     fields("a", "1", "b", "2"),
			want:       true,
		},
		{
			name:       "two conditions on the same key, wrong value",
			conditions: []model.FieldCondition{hasKey("a"), keyValue("a", "2")},
			fields:     fields("a", "1", "b", "2"),
			want:       false,
		},
		{
			name:       "empty conditions match anything",
			conditions: nil,
			fields:     fields("a", "1"),
			want:       true,
		},
		{
			name:       "empty fields only match empty conditions",
			conditions: []model.FieldCondition{hasKey("a")},
			fields:     nil,
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.conditions, tt.fields); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
