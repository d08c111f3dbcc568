package message

// Tag identifies a FIX field by its numeric tag.
type Tag uint32

// Standard header tags (spec.md §3: "standard header (tags 8, 9, 35, 49, 56,
// 34, 52, and optional 43, 97, 122)"). Order within the header is fixed by
// the protocol, not by insertion.
const (
	TagBeginString     Tag = 8
	TagBodyLength      Tag = 9
	TagMsgType         Tag = 35
	TagSenderCompID    Tag = 49
	TagTargetCompID    Tag = 56
	TagMsgSeqNum       Tag = 34
	TagSendingTime     Tag = 52
	TagPossDupFlag     Tag = 43
	TagPossResend      Tag = 97
	TagOrigSendingTime Tag = 122
)

// Trailer tag.
const TagCheckSum Tag = 10

// Administrative body tags used by the session FSM (spec.md §6).
const (
	TagEncryptMethod       Tag = 98
	TagHeartBtInt          Tag = 108
	TagResetSeqNumFlag     Tag = 141
	TagPassword            Tag = 554
	TagTestReqID           Tag = 112
	TagBeginSeqNo          Tag = 7
	TagEndSeqNo            Tag = 16
	TagNewSeqNo            Tag = 36
	TagGapFillFlag         Tag = 123
	TagRefSeqNum           Tag = 45
	TagRefTagID            Tag = 371
	TagRefMsgType          Tag = 372
	TagSessionRejectReason Tag = 373
	TagText                Tag = 58
)

// MsgType values. Admin message types per spec.md §4.3 "Admin vs application
// classification": {0,1,2,3,4,5,A}; everything else is an application message.
const (
	MsgTypeHeartbeat     = "0"
	MsgTypeTestRequest   = "1"
	MsgTypeResendRequest = "2"
	MsgTypeReject        = "3"
	MsgTypeSequenceReset = "4"
	MsgTypeLogout        = "5"
	MsgTypeLogon         = "A"
)

// IsAdmin reports whether msgType is one of the administrative message types
// handled directly by the session FSM rather than forwarded to the listener.
func IsAdmin(msgType string) bool {
	switch msgType {
	case MsgTypeHeartbeat, MsgTypeTestRequest, MsgTypeResendRequest,
		MsgTypeReject, MsgTypeSequenceReset, MsgTypeLogout, MsgTypeLogon:
		return true
	default:
		return false
	}
}

const (
	// YesValue and NoValue are the wire encodings of FIX boolean fields
	// (e.g. tag 141 ResetSeqNumFlag, tag 43 PossDupFlag, tag 123 GapFillFlag).
	YesValue = "Y"
	NoValue  = "N"
)

// SessionRejectReason values (tag 373), the subset the Reject path
// (spec.md §4.3) has occasion to send.
const (
	SessionRejectReasonInvalidTagNumber    = 0
	SessionRejectReasonRequiredTagMissing  = 1
	SessionRejectReasonValueIncorrect      = 5
	SessionRejectReasonIncorrectDataFormat = 6
	SessionRejectReasonOther               = 99
)
