package messages

import "fixclient/message"

// Business-message tags, scoped to this package rather than
// message/tags.go since they're meaningful only to the construction
// helpers here, not to the session FSM (spec.md §1 "business-message
// construction library" is explicitly an out-of-core collaborator).
const (
	TagClOrdID      message.Tag = 11
	TagOrigClOrdID  message.Tag = 41
	TagSymbol       message.Tag = 55
	TagSide         message.Tag = 54
	TagOrderQty     message.Tag = 38
	TagOrdType      message.Tag = 40
	TagPrice        message.Tag = 44
	TagTimeInForce  message.Tag = 59
	TagHandlInst    message.Tag = 21
	TagTransactTime message.Tag = 60

	TagMDReqID                 message.Tag = 262
	TagSubscriptionRequestType message.Tag = 263
	TagMarketDepth             message.Tag = 264
	TagNoRelatedSym            message.Tag = 146
	TagNoMDEntryTypes          message.Tag = 267
	TagMDEntryType             message.Tag = 269

	TagTradeReportID    message.Tag = 571
	TagPreviouslyRptd   message.Tag = 570
	TagTradeRequestID   message.Tag = 568
	TagTradeRequestType message.Tag = 569

	TagUsername           message.Tag = 553
	TagNewPassword        message.Tag = 925
	TagPasswordChangeType message.Tag = 924
)

// Side values (tag 54).
const (
	SideBuy  = "1"
	SideSell = "2"
)

// OrdType values (tag 40).
const (
	OrdTypeMarket = "1"
	OrdTypeLimit  = "2"
)

// TimeInForce values (tag 59).
const (
	TimeInForceDay = "0"
	TimeInForceGTC = "1"
	TimeInForceIOC = "3"
)

// SubscriptionRequestType values (tag 263).
const (
	SubscriptionSnapshot          = "0"
	SubscriptionSnapshotAndUpdate = "1"
	SubscriptionDisable           = "2"
)

// MDEntryType values (tag 269).
const (
	MDEntryTypeBid   = "0"
	MDEntryTypeOffer = "1"
	MDEntryTypeTrade = "2"
)
