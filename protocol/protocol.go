// Package protocol implements the FIX 4.4 tag-value wire codec (spec.md
// §4.1).
//
// It descends from the teacher's 14-byte fixed-header binary frame codec:
// the same "read a length prefix, then read exactly that many more bytes"
// discipline solves TCP's sticky-packet problem here too, except the
// length prefix is itself an ASCII tag-value field (9=NNN) instead of a
// fixed binary uint32, and the frame is terminated by a checksum trailer
// instead of being purely length-delimited.
//
// Frame shape:
//
//	8=FIX.4.4|9=<bodyLen>|35=A|49=CLIENT|56=SRV|34=1|52=...|...body...|10=NNN|
//
// Encode is stateless; the only thing it writes back is the computed
// checksum, into m.CheckSum. Decode is a stateful streaming decoder:
// it owns an internal buffer, accepts arbitrary byte chunks from the
// socket, and yields zero or more complete messages per chunk — a message
// may span any number of chunks, and a chunk may contain any number of
// messages.
package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"fixclient/message"
)

// SOH is the FIX field delimiter, 0x01.
const SOH = 0x01

// CorruptFrameError is reported (via a decoder's corrupt-frame callback,
// never via Feed's return value) when a frame's checksum or trailer is
// malformed. Per spec.md §4.1, the decoder discards the malformed frame
// and continues; it never blocks the stream on a single bad frame.
// RefTagID names the specific tag at fault, when one can be identified,
// so the engine's Reject path (spec.md §4.3) can populate tag 371.
type CorruptFrameError struct {
	Reason   string
	RefTagID message.Tag
}

func (e *CorruptFrameError) Error() string {
	return fmt.Sprintf("protocol: corrupt frame: %s", e.Reason)
}

var errNeedMoreData = errors.New("protocol: need more data")

// Encode serializes m into a complete FIX frame: header (minus 8/9/10),
// then body, then the 8=/9= prefix and 10= trailer are computed around it
// (spec.md §4.1 Encode procedure). The checksum is also stored on
// m.CheckSum.
func Encode(m *message.FixMessage) ([]byte, error) {
	if m.BeginString == "" {
		return nil, errors.New("protocol: BeginString is empty")
	}
	if m.MsgType == "" {
		return nil, errors.New("protocol: MsgType is empty")
	}

	var b bytes.Buffer
	writeField(&b, message.TagMsgType, m.MsgType)
	writeField(&b, message.TagSenderCompID, m.SenderCompID)
	writeField(&b, message.TagTargetCompID, m.TargetCompID)
	writeField(&b, message.TagMsgSeqNum, strconv.FormatUint(uint64(m.MsgSeqNum), 10))
	writeField(&b, message.TagSendingTime, m.SendingTime)
	if m.PossDupFlag {
		writeField(&b, message.TagPossDupFlag, message.YesValue)
	}
	if m.PossResend {
		writeField(&b, message.TagPossResend, message.YesValue)
	}
	if m.OrigSendingTime != "" {
		writeField(&b, message.TagOrigSendingTime, m.OrigSendingTime)
	}
	for _, f := range m.Body() {
		writeField(&b, f.Tag, string(f.Value))
	}

	bodyLen := b.Len()

	var frame bytes.Buffer
	writeField(&frame, message.TagBeginString, m.BeginString)
	writeField(&frame, message.TagBodyLength, strconv.Itoa(bodyLen))
	frame.Write(b.Bytes())

	checksum := checksumOf(frame.Bytes())
	m.CheckSum = fmt.Sprintf("%03d", checksum)
	writeField(&frame, message.TagCheckSum, m.CheckSum)

	return frame.Bytes(), nil
}

func writeField(b *bytes.Buffer, tag message.Tag, value string) {
	b.WriteString(strconv.FormatUint(uint64(tag), 10))
	b.WriteByte('=')
	b.WriteString(value)
	b.WriteByte(SOH)
}

// checksumOf computes the FIX checksum: the sum of all bytes, modulo 256
// (spec.md §3).
func checksumOf(data []byte) int {
	sum := 0
	for _, c := range data {
		sum += int(c)
	}
	return sum % 256
}

// Decoder is a stateful, restartable streaming decoder. One Decoder must
// be used per connection; it is not safe for concurrent use (the reader
// task is its sole owner, per spec.md §5).
type Decoder struct {
	buf       []byte
	onCorrupt func(error)
}

// NewDecoder returns a Decoder with an empty internal buffer.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// OnCorruptFrame registers a callback invoked whenever Feed discards a
// malformed frame. The engine uses this to log FramingCorrupt without
// tearing down the connection (spec.md §7).
func (d *Decoder) OnCorruptFrame(fn func(error)) {
	d.onCorrupt = fn
}

// Feed appends chunk to the internal buffer and extracts every complete
// message now available. It never blocks and never returns an error
// directly — framing errors are reported through the OnCorruptFrame
// callback and otherwise skipped, matching spec.md §4.1: "the decoder
// reports a CorruptFrame error and discards up to and including the
// malformed frame."
func (d *Decoder) Feed(chunk []byte) []*message.FixMessage {
	if len(chunk) > 0 {
		d.buf = append(d.buf, chunk...)
	}

	var out []*message.FixMessage
	for {
		msg, consumed, err := d.tryExtract()
		switch {
		case err == errNeedMoreData:
			d.buf = d.buf[consumed:]
			return out
		case err != nil:
			if d.onCorrupt != nil {
				d.onCorrupt(err)
			}
			d.buf = d.buf[consumed:]
		default:
			d.buf = d.buf[consumed:]
			out = append(out, msg)
		}
	}
}

// tryExtract attempts to pull one frame out of the front of d.buf. It
// returns errNeedMoreData when the buffer doesn't yet hold a complete
// frame (the caller must wait for more chunks), or a *CorruptFrameError
// together with the number of bytes to discard.
func (d *Decoder) tryExtract() (*message.FixMessage, int, error) {
	buf := d.buf

	// Resync: BeginString must be the first field (spec.md §3). If it
	// isn't, discard bytes up to the next "8=" occurrence.
	if !bytes.HasPrefix(buf, []byte("8=")) {
		idx := bytes.Index(buf, []byte("8="))
		if idx < 0 {
			// No BeginString anywhere in the buffer yet; keep at most one
			// trailing byte in case "8=" is split across chunks, discard
			// the rest so garbage doesn't accumulate forever.
			if len(buf) > 1 {
				return nil, len(buf) - 1, errNeedMoreData
			}
			return nil, 0, errNeedMoreData
		}
		return nil, idx, &CorruptFrameError{Reason: "BeginString not at start of frame, resyncing", RefTagID: message.TagBeginString}
	}

	sohIdx1 := bytes.IndexByte(buf, SOH)
	if sohIdx1 < 0 {
		return nil, 0, errNeedMoreData
	}

	// The next field must be BodyLength (spec.md §3: "Body-Length (9) is
	// the second").
	rest := buf[sohIdx1+1:]
	if len(rest) < 2 && bytes.HasPrefix([]byte("9="), rest) {
		// "9=" itself has not fully arrived yet.
		return nil, 0, errNeedMoreData
	}
	if !bytes.HasPrefix(rest, []byte("9=")) {
		return nil, sohIdx1 + 1, &CorruptFrameError{Reason: "BodyLength is not the second field", RefTagID: message.TagBodyLength}
	}
	sohIdx2 := bytes.IndexByte(rest, SOH)
	if sohIdx2 < 0 {
		return nil, 0, errNeedMoreData
	}
	bodyLenField := rest[2:sohIdx2]
	bodyLen, err := strconv.Atoi(string(bodyLenField))
	if err != nil || bodyLen < 0 {
		return nil, sohIdx1 + 1 + sohIdx2 + 1, &CorruptFrameError{Reason: fmt.Sprintf("invalid BodyLength %q", bodyLenField), RefTagID: message.TagBodyLength}
	}

	bodyStart := sohIdx1 + 1 + sohIdx2 + 1
	bodyEnd := bodyStart + bodyLen
	if len(buf) < bodyEnd {
		return nil, 0, errNeedMoreData
	}

	trailerSOH := bytes.IndexByte(buf[bodyEnd:], SOH)
	if trailerSOH < 0 {
		return nil, 0, errNeedMoreData
	}
	trailerField := buf[bodyEnd : bodyEnd+trailerSOH]
	frameEnd := bodyEnd + trailerSOH + 1

	if !bytes.HasPrefix(trailerField, []byte("10=")) {
		return nil, frameEnd, &CorruptFrameError{Reason: "missing CheckSum trailer", RefTagID: message.TagCheckSum}
	}
	checksumValue := trailerField[3:]
	if len(checksumValue) != 3 {
		return nil, frameEnd, &CorruptFrameError{Reason: fmt.Sprintf("CheckSum %q is not three digits", checksumValue), RefTagID: message.TagCheckSum}
	}
	wantChecksum, err := strconv.Atoi(string(checksumValue))
	if err != nil {
		return nil, frameEnd, &CorruptFrameError{Reason: fmt.Sprintf("CheckSum %q is not numeric", checksumValue), RefTagID: message.TagCheckSum}
	}
	gotChecksum := checksumOf(buf[:bodyEnd])
	if gotChecksum != wantChecksum {
		return nil, frameEnd, &CorruptFrameError{Reason: fmt.Sprintf("checksum mismatch: got %03d, frame says %03d", gotChecksum, wantChecksum), RefTagID: message.TagCheckSum}
	}

	msg, err := parseFrame(buf[:frameEnd])
	if err != nil {
		return nil, frameEnd, &CorruptFrameError{Reason: err.Error()}
	}
	return msg, frameEnd, nil
}

// parseFrame tokenizes a complete, checksum-validated frame into a
// FixMessage, distributing known header/trailer tags into their named
// struct fields and leaving everything else in body order.
func parseFrame(frame []byte) (*message.FixMessage, error) {
	msg := &message.FixMessage{}
	for _, raw := range bytes.Split(frame, []byte{SOH}) {
		if len(raw) == 0 {
			continue
		}
		eq := bytes.IndexByte(raw, '=')
		if eq < 0 {
			return nil, fmt.Errorf("field %q missing '='", raw)
		}
		tagNum, err := strconv.Atoi(string(raw[:eq]))
		if err != nil {
			return nil, fmt.Errorf("field %q has non-numeric tag", raw)
		}
		tag := message.Tag(tagNum)
		value := raw[eq+1:]

		switch tag {
		case message.TagBeginString:
			msg.BeginString = string(value)
		case message.TagBodyLength:
			// recomputed by Encode; not surfaced on the parsed message.
		case message.TagMsgType:
			msg.MsgType = string(value)
		case message.TagSenderCompID:
			msg.SenderCompID = string(value)
		case message.TagTargetCompID:
			msg.TargetCompID = string(value)
		case message.TagMsgSeqNum:
			n, err := strconv.ParseUint(string(value), 10, 32)
			if err != nil {
				return nil, fmt.Errorf("MsgSeqNum %q is not numeric", value)
			}
			msg.MsgSeqNum = uint32(n)
		case message.TagSendingTime:
			msg.SendingTime = string(value)
		case message.TagPossDupFlag:
			msg.PossDupFlag = string(value) == message.YesValue
		case message.TagPossResend:
			msg.PossResend = string(value) == message.YesValue
		case message.TagOrigSendingTime:
			msg.OrigSendingTime = string(value)
		case message.TagCheckSum:
			msg.CheckSum = string(value)
		default:
			valueCopy := make([]byte, len(value))
			copy(valueCopy, value)
			msg.Set(tag, valueCopy)
		}
	}
	return msg, nil
}
