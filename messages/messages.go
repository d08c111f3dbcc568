// Package messages builds the business-message payloads spec.md §1 scopes
// out of the core: "new-order-single, cancel/replace, market-data
// request, trade-capture". Each builder's contract (spec.md §1) is to
// produce a FixMessage with MsgType and body fields populated but
// *without* sequence number, sending time, checksum, or body-length — the
// Engine fills those in its send path (Engine.sendMessage) immediately
// before encode.
//
// Grounded on the original connector's FixClientMessages class
// (fixEngine/fixClientMessages.py): one createMessage-style entry point
// per message type, each a thin wrapper setting only the fields that
// message type requires. ChangePasswordRequest and the trade-capture
// acknowledgement are carried over unchanged from that source as
// supplemented features; NewOrderSingle/CancelReplace/MarketDataRequest
// are new, built the same way, for the four message types spec.md names
// explicitly.
package messages

import (
	"strconv"

	"fixclient/message"
)

// NewOrderSingle builds a 35=D New Order Single for symbol, to buy/sell
// orderQty shares. price is ignored (order type is stamped as Market)
// when ordType is OrdTypeMarket.
func NewOrderSingle(clOrdID, symbol, side string, orderQty int, ordType string, price float64, tif string) *message.FixMessage {
	m := message.New("D")
	m.SetString(TagClOrdID, clOrdID)
	m.SetString(TagHandlInst, "1") // automated, no broker intervention
	m.SetString(TagSymbol, symbol)
	m.SetString(TagSide, side)
	m.SetInt(TagOrderQty, orderQty)
	m.SetString(TagOrdType, ordType)
	if ordType == OrdTypeLimit {
		m.SetString(TagPrice, strconv.FormatFloat(price, 'f', -1, 64))
	}
	m.SetString(TagTimeInForce, tif)
	return m
}

// CancelReplace builds a 35=G Order Cancel/Replace Request, referencing
// the order being replaced by origClOrdID.
func CancelReplace(origClOrdID, clOrdID, symbol, side string, orderQty int, ordType string, price float64) *message.FixMessage {
	m := message.New("G")
	m.SetString(TagOrigClOrdID, origClOrdID)
	m.SetString(TagClOrdID, clOrdID)
	m.SetString(TagHandlInst, "1")
	m.SetString(TagSymbol, symbol)
	m.SetString(TagSide, side)
	m.SetInt(TagOrderQty, orderQty)
	m.SetString(TagOrdType, ordType)
	if ordType == OrdTypeLimit {
		m.SetString(TagPrice, strconv.FormatFloat(price, 'f', -1, 64))
	}
	return m
}

// MarketDataRequest builds a 35=V request for one or more entry types
// (bid/offer/trade) on the given symbols.
func MarketDataRequest(mdReqID string, subscriptionType string, marketDepth int, symbols []string, entryTypes []string) *message.FixMessage {
	m := message.New("V")
	m.SetString(TagMDReqID, mdReqID)
	m.SetString(TagSubscriptionRequestType, subscriptionType)
	m.SetInt(TagMarketDepth, marketDepth)
	m.SetInt(TagNoMDEntryTypes, len(entryTypes))
	for _, et := range entryTypes {
		m.Set(TagMDEntryType, []byte(et))
	}
	m.SetInt(TagNoRelatedSym, len(symbols))
	for _, sym := range symbols {
		m.Set(TagSymbol, []byte(sym))
	}
	return m
}

// TradeCaptureReportRequest builds a 35=AD request for trade reports,
// grounded on sendTradeCaptureReportRequest. updatesOnly selects
// subscription type 9 (updates only) instead of 1 (snapshot+updates).
func TradeCaptureReportRequest(requestID string, updatesOnly bool) *message.FixMessage {
	m := message.New("AD")
	m.SetString(TagTradeRequestID, requestID)
	m.SetString(TagTradeRequestType, "0")
	if updatesOnly {
		m.SetString(TagSubscriptionRequestType, "9")
	} else {
		m.SetString(TagSubscriptionRequestType, "1")
	}
	return m
}

// TradeCaptureReportAck builds a 35=AR acknowledgement, grounded on
// sendTradeCaptureReportAck.
func TradeCaptureReportAck(tradeReportID string) *message.FixMessage {
	m := message.New("AR")
	m.SetString(TagTradeReportID, tradeReportID)
	m.SetString(TagSymbol, "NA")
	return m
}

// ChangePasswordRequest builds a 35=BE request, carried over from
// sendChangePasswordRequest unchanged in semantics.
func ChangePasswordRequest(senderCompID, oldPassword, newPassword string) *message.FixMessage {
	m := message.New("BE")
	m.SetString(TagPasswordChangeType, "3")
	m.SetString(TagUsername, senderCompID)
	m.Set(message.TagPassword, []byte(oldPassword))
	m.SetString(TagNewPassword, newPassword)
	return m
}
