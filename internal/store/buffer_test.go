package store

import (
	"fmt"
	"testing"

	"github.com/sievelabs/sieve/internal/model"
)

func opaque(s string) model.Entry {
	return model.Opaque{Bytes: []byte(s)}
}

func TestNewMessageBuffer_RejectsBadBound(t *testing.T) {
	for _, bound := range []int{0, -1} {
		if _, err := NewMessageBuffer(bound); err == nil {
			t.Errorf("bound %d: expected error, got nil", bound)
		}
	}
}

func TestMessageBuffer_BoundedWindow(t *testing.T) {
	tests := []struct {
		bound  int
		pushes int
	}{
		{bound: 3, pushes: 1},
		{bound: 3, pushes: 3},
		{bound: 3, pushes: 4},
		{bound: 3, pushes: 10},
		{bound: 1, pushes: 5},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("bound=%d,pushes=%d", tt.bound, tt.pushes), func(t *testing.T) {
			b, err := NewMessageBuffer(tt.bound)
			if err != nil {
				t.Fatalf("NewMessageBuffer: %v", err)
			}

			for i := 0; i < tt.pushes; i++ {
				res := b.Push(opaque(fmt.Sprintf("line %d", i)))
				if got := int(res.Added); got != i {
					t.Fatalf("push %d: assigned id %d", i, got)
				}
			}

			wantLen := tt.pushes
			if wantLen > tt.bound {
				wantLen = tt.bound
			}
			if b.Len() != wantLen {
				t.Errorf("Len() = %d, want %d", b.Len(), wantLen)
			}

			wantStart := tt.pushes - tt.bound
			if wantStart < 0 {
				wantStart = 0
			}
			start, end := b.Window()
			if int(start) != wantStart || int(end) != tt.pushes {
				t.Errorf("Window() = [%d, %d), want [%d, %d)", start, end, wantStart, tt.pushes)
			}
		})
	}
}

func TestMessageBuffer_EvictsOldestExactlyOnce(t *testing.T) {
	const bound = 4
	b, err := NewMessageBuffer(bound)
	if err != nil {
		t.Fatalf("NewMessageBuffer: %v", err)
	}

	for i := 0; i < bound; i++ {
		if res := b.Push(opaque(fmt.Sprintf("line %d", i))); res.Evicted != nil {
			t.Fatalf("push %d: unexpected eviction of id %d", i, res.Evicted.ID)
		}
	}

	res := b.Push(opaque("overflow"))
	if res.Evicted == nil {
		t.Fatal("push past capacity evicted nothing")
	}
	if res.Evicted.ID != 0 {
		t.Errorf("evicted id = %d, want 0", res.Evicted.ID)
	}
	got, ok := res.Evicted.Entry.(model.Opaque)
	if !ok || string(got.Bytes) != "line 0" {
		t.Errorf("evicted entry = %#v, want line 0", res.Evicted.Entry)
	}
	if b.Len() != bound {
		t.Errorf("Len() = %d, want %d", b.Len(), bound)
	}
}

func TestMessageBuffer_Get(t *testing.T) {
	b, err := NewMessageBuffer(2)
	if err != nil {
		t.Fatalf("NewMessageBuffer: %v", err)
	}
	for i := 0; i < 3; i++ {
		b.Push(opaque(fmt.Sprintf("line %d", i)))
	}

	if _, ok := b.Get(0); ok {
		t.Error("Get(0) found an evicted id")
	}
	if _, ok := b.Get(3); ok {
		t.Error("Get(3) found an unassigned id")
	}
	for id := model.MessageID(1); id <= 2; id++ {
		entry, ok := b.Get(id)
		if !ok {
			t.Fatalf("Get(%d) missing", id)
		}
		want := fmt.Sprintf("line %d", id)
		if got := string(entry.(model.Opaque).Bytes); got != want {
			t.Errorf("Get(%d) = %q, want %q", id, got, want)
		}
	}
}
