// Package message defines the FixMessage envelope exchanged between the
// session engine and the exchange gateway.
//
// A FixMessage is the FIX analogue of the teacher's RPCMessage: the unit
// that the codec serializes and the engine stamps before writing it to the
// wire. Unlike RPCMessage's three named fields, a FixMessage is an ordered
// bag of (tag, value) pairs logically split into header, body, and trailer
// regions (spec.md §3).
package message

import (
	"bytes"
	"fmt"
)

// Field is a single tag-value pair. Values are opaque bytes until a
// consumer requests a typed view through the codec package's accessors.
type Field struct {
	Tag   Tag
	Value []byte
}

// FixMessage is an ordered list of fields partitioned into standard header,
// body, and trailer, per spec.md §3. The header and trailer fields are
// held as named struct fields so their wire order is fixed by the codec
// rather than by caller discipline; the body is a plain ordered slice so
// insertion order is preserved exactly as a business-message builder wrote
// it.
type FixMessage struct {
	// Header (order fixed by the protocol, not by insertion)
	BeginString     string
	MsgType         string
	SenderCompID    string
	TargetCompID    string
	MsgSeqNum       uint32 // 0 until the Engine stamps it on send
	SendingTime     string // YYYYMMDD-HH:MM:SS.sss UTC; empty until stamped
	PossDupFlag     bool
	PossResend      bool
	OrigSendingTime string // only meaningful when PossDupFlag is set

	// Body, insertion order preserved (spec.md §3: "order within body is
	// preserved as inserted").
	body []Field

	// Trailer
	CheckSum string // three ASCII digits, set by Encode
}

// New creates an empty FixMessage of the given MsgType. Business-message
// builders (package messages) call this and then Set the fields their
// message type requires; the session/engine fills in everything else
// (spec.md "Out of scope (collaborators)" contract).
func New(msgType string) *FixMessage {
	return &FixMessage{MsgType: msgType}
}

// Get returns the value stored under tag in the body, and whether it was
// present.
func (m *FixMessage) Get(tag Tag) ([]byte, bool) {
	for _, f := range m.body {
		if f.Tag == tag {
			return f.Value, true
		}
	}
	return nil, false
}

// Set stores value under tag in the body. If tag is already present its
// value is replaced in place, preserving the field's original position;
// otherwise the field is appended, preserving insertion order.
func (m *FixMessage) Set(tag Tag, value []byte) {
	for i, f := range m.body {
		if f.Tag == tag {
			m.body[i].Value = value
			return
		}
	}
	m.body = append(m.body, Field{Tag: tag, Value: value})
}

// SetString is a convenience wrapper around Set for string values.
func (m *FixMessage) SetString(tag Tag, value string) {
	m.Set(tag, []byte(value))
}

// SetInt is a convenience wrapper around Set for integer values, rendered
// as ASCII digits.
func (m *FixMessage) SetInt(tag Tag, value int) {
	m.Set(tag, []byte(fmt.Sprintf("%d", value)))
}

// Body returns the body fields in insertion order. The returned slice must
// not be mutated by the caller; use Set to modify fields.
func (m *FixMessage) Body() []Field {
	return m.body
}

// Equal reports whether two messages carry identical header, body (in the
// same order), and trailer — used by codec round-trip tests (spec.md §8,
// invariant 1).
func (m *FixMessage) Equal(other *FixMessage) bool {
	if other == nil {
		return false
	}
	if m.BeginString != other.BeginString || m.MsgType != other.MsgType ||
		m.SenderCompID != other.SenderCompID || m.TargetCompID != other.TargetCompID ||
		m.MsgSeqNum != other.MsgSeqNum || m.SendingTime != other.SendingTime ||
		m.PossDupFlag != other.PossDupFlag || m.PossResend != other.PossResend ||
		m.OrigSendingTime != other.OrigSendingTime || m.CheckSum != other.CheckSum {
		return false
	}
	if len(m.body) != len(other.body) {
		return false
	}
	for i, f := range m.body {
		if f.Tag != other.body[i].Tag || !bytes.Equal(f.Value, other.body[i].Value) {
			return false
		}
	}
	return true
}
