package cunit

import (
	"fmt"
	"github.com/fxamacker/cbor/v2"
)

// EnvelopeMagic marks a CBOR envelope artifact.
const EnvelopeMagic = "cunit/1"

// Envelope is the portable artifact of a precompiled unit kind.
//
// Name is whatever the producer called the unit. It is decoded for diagnostics only
// and never used to identify or bind the unit.
type Envelope struct {
	Magic   string `cbor:"1,keyasint"`
	Name    string `cbor:"2,keyasint,omitempty"`
	Kind    string `cbor:"3,keyasint"`
	Payload []byte `cbor:"4,keyasint,omitempty"`
}

var envelopeEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cunit: failed to create CBOR enc mode: %v", err))
	}
	envelopeEncMode = em
}

// MarshalEnvelope encodes an envelope artifact.
func MarshalEnvelope(name, kind string, payload []byte) ([]byte, error) {
	if kind == "" {
		return nil, fmt.Errorf("cunit: marshal envelope: %w", ErrUnknownKind)
	}
	return envelopeEncMode.Marshal(&Envelope{Magic: EnvelopeMagic, Name: name, Kind: kind, Payload: payload})
}

// UnmarshalEnvelope decodes an envelope artifact, ErrNotEnvelope for anything else.
func UnmarshalEnvelope(raw []byte) (*Envelope, error) {
	var e Envelope
	if err := cbor.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotEnvelope, err)
	}
	if e.Magic != EnvelopeMagic {
		return nil, ErrNotEnvelope
	}
	return &e, nil
}

// IsEnvelope sniffs raw bytes.
func IsEnvelope(raw []byte) bool {
	_, err := UnmarshalEnvelope(raw)
	return err == nil
}
