package messages

import "testing"

func TestNewOrderSingleSetsRequiredFields(t *testing.T) {
	m := NewOrderSingle("clord-1", "AAPL", SideBuy, 100, OrdTypeLimit, 190.25, TimeInForceDay)

	if m.MsgType != "D" {
		t.Fatalf("expect MsgType D, got %s", m.MsgType)
	}
	if v, ok := m.Get(TagSymbol); !ok || string(v) != "AAPL" {
		t.Errorf("expect Symbol=AAPL, got %q, ok=%v", v, ok)
	}
	if v, ok := m.Get(TagPrice); !ok || string(v) != "190.25" {
		t.Errorf("expect Price=190.25, got %q, ok=%v", v, ok)
	}
	if m.MsgSeqNum != 0 || m.SendingTime != "" {
		t.Errorf("builder must not stamp seq-num/sending-time, got %+v", m)
	}
}

func TestNewOrderSingleOmitsPriceForMarketOrders(t *testing.T) {
	m := NewOrderSingle("clord-1", "AAPL", SideBuy, 100, OrdTypeMarket, 0, TimeInForceDay)
	if _, ok := m.Get(TagPrice); ok {
		t.Errorf("expect no Price field on a market order")
	}
}

func TestMarketDataRequestCountsEntries(t *testing.T) {
	m := MarketDataRequest("mdr-1", SubscriptionSnapshotAndUpdate, 0, []string{"AAPL", "MSFT"}, []string{MDEntryTypeBid, MDEntryTypeOffer})

	if v, _ := m.Get(TagNoRelatedSym); string(v) != "2" {
		t.Errorf("expect NoRelatedSym=2, got %q", v)
	}
	if v, _ := m.Get(TagNoMDEntryTypes); string(v) != "2" {
		t.Errorf("expect NoMDEntryTypes=2, got %q", v)
	}
}

func TestCancelReplaceReferencesOriginal(t *testing.T) {
	m := CancelReplace("clord-1", "clord-2", "AAPL", SideSell, 50, OrdTypeLimit, 200)
	if v, _ := m.Get(TagOrigClOrdID); string(v) != "clord-1" {
		t.Errorf("expect OrigClOrdID=clord-1, got %q", v)
	}
}

func TestTradeCaptureReportRequestSnapshotAndUpdate(t *testing.T) {
	m := TradeCaptureReportRequest("req-1", false)

	if m.MsgType != "AD" {
		t.Fatalf("expect MsgType AD, got %s", m.MsgType)
	}
	if v, ok := m.Get(TagTradeRequestID); !ok || string(v) != "req-1" {
		t.Errorf("expect TradeRequestID=req-1, got %q, ok=%v", v, ok)
	}
	if v, _ := m.Get(TagTradeRequestType); string(v) != "0" {
		t.Errorf("expect TradeRequestType=0, got %q", v)
	}
	if v, _ := m.Get(TagSubscriptionRequestType); string(v) != "1" {
		t.Errorf("expect SubscriptionRequestType=1 for snapshot+updates, got %q", v)
	}
}

func TestTradeCaptureReportRequestUpdatesOnly(t *testing.T) {
	m := TradeCaptureReportRequest("req-2", true)
	if v, _ := m.Get(TagSubscriptionRequestType); string(v) != "9" {
		t.Errorf("expect SubscriptionRequestType=9 for updates-only, got %q", v)
	}
}
