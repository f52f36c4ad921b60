package cunit

import (
	"errors"
	"github.com/ZenLiuCN/fn"
	"github.com/davecgh/go-spew/spew"
	"github.com/fxamacker/cbor/v2"
	"testing"
)

func TestEnvelope(t *testing.T) {
	raw := fn.Panic1(MarshalEnvelope("Main", "spy", []byte("ok")))
	again := fn.Panic1(MarshalEnvelope("Main", "spy", []byte("ok")))
	if string(raw) != string(again) {
		t.Errorf("encoding is not deterministic")
	}
	e := fn.Panic1(UnmarshalEnvelope(raw))
	if e.Kind != "spy" || e.Name != "Main" || string(e.Payload) != "ok" {
		t.Errorf("decoded %s", spew.Sdump(e))
	}
	if !IsEnvelope(raw) {
		t.Errorf("envelope not detected")
	}
}

func TestEnvelopeRejects(t *testing.T) {
	foreign := fn.Panic1(cbor.Marshal(map[int]string{1: "other/1", 3: "spy"}))
	for name, raw := range map[string][]byte{
		"empty":   nil,
		"garbage": []byte{0xff, 0x00, 0x13},
		"magic":   foreign,
	} {
		if _, err := UnmarshalEnvelope(raw); !errors.Is(err, ErrNotEnvelope) {
			t.Errorf("%s: %v", name, err)
		}
	}
	if _, err := MarshalEnvelope("x", "", nil); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("empty kind: %v", err)
	}
}
