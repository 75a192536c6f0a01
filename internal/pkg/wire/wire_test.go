package wire

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/sievelabs/sieve/internal/model"
)

func TestMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	out := ClientMessage{
		Type: TypeCreateIndex,
		Conditions: []model.FieldCondition{
			{Kind: model.HasKey, Key: "level"},
			{Kind: model.KeyValue, Key: "service", Value: "api"},
		},
	}
	if err := WriteMessage(&buf, out); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	var in ClientMessage
	if err := ReadMessage(&buf, &in); err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if in.Type != out.Type || len(in.Conditions) != 2 {
		t.Fatalf("round trip = %+v, want %+v", in, out)
	}
	if in.Conditions[1] != out.Conditions[1] {
		t.Errorf("condition = %+v, want %+v", in.Conditions[1], out.Conditions[1])
	}
}

func TestWriteThenReadMultiple(t *testing.T) {
	var buf bytes.Buffer
	for _, typ := range []string{TypeHandshakeOk, TypeKeyList, TypeStatus} {
		if err := WriteMessage(&buf, ServerMessage{Type: typ}); err != nil {
			t.Fatalf("WriteMessage(%s): %v", typ, err)
		}
	}

	for _, want := range []string{TypeHandshakeOk, TypeKeyList, TypeStatus} {
		var msg ServerMessage
		if err := ReadMessage(&buf, &msg); err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		if msg.Type != want {
			t.Errorf("type = %q, want %q", msg.Type, want)
		}
	}
}

func TestReadMessage_RejectsOversizedFrame(t *testing.T) {
	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, MaxFrameSize+1)

	var msg ClientMessage
	err := ReadMessage(bytes.NewReader(lenBuf), &msg)
	if err == nil || !strings.Contains(err.Error(), "frame") {
		t.Errorf("expected frame limit error, got %v", err)
	}
}

func TestReadMessage_TruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, ServerMessage{Type: TypeError, Error: "nope"}); err != nil {
		t.Fatal(err)
	}
	truncated := buf.Bytes()[:buf.Len()-2]

	var msg ServerMessage
	if err := ReadMessage(bytes.NewReader(truncated), &msg); err == nil {
		t.Error("expected error for truncated payload")
	}
}
