package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"fixclient/message"
)

func echoHandler(ctx context.Context, msg *message.FixMessage) error {
	return nil
}

func slowHandler(ctx context.Context, msg *message.FixMessage) error {
	time.Sleep(200 * time.Millisecond)
	return nil
}

func failingHandler(ctx context.Context, msg *message.FixMessage) error {
	return errors.New("boom")
}

func testMsg() *message.FixMessage {
	m := message.New(message.MsgTypeHeartbeat)
	m.MsgSeqNum = 1
	return m
}

func TestLogging(t *testing.T) {
	logger := zap.NewNop().Sugar()
	handler := LoggingMiddleware(logger)(echoHandler)

	if err := handler(context.Background(), testMsg()); err != nil {
		t.Fatalf("expect no error, got %v", err)
	}
}

func TestLoggingPropagatesError(t *testing.T) {
	logger := zap.NewNop().Sugar()
	handler := LoggingMiddleware(logger)(failingHandler)

	if err := handler(context.Background(), testMsg()); err == nil {
		t.Fatal("expect error to propagate through logging middleware")
	}
}

func TestTimeoutPass(t *testing.T) {
	handler := TimeoutMiddleware(500 * time.Millisecond)(echoHandler)
	if err := handler(context.Background(), testMsg()); err != nil {
		t.Fatalf("expect no error, got %v", err)
	}
}

func TestTimeoutExceeded(t *testing.T) {
	handler := TimeoutMiddleware(50 * time.Millisecond)(slowHandler)
	if err := handler(context.Background(), testMsg()); err == nil {
		t.Fatal("expect timeout error")
	}
}

func TestRateLimit(t *testing.T) {
	handler := RateLimitMiddleware(1, 2)(echoHandler)

	for i := 0; i < 2; i++ {
		if err := handler(context.Background(), testMsg()); err != nil {
			t.Fatalf("request %d should pass, got error: %v", i, err)
		}
	}

	if err := handler(context.Background(), testMsg()); err == nil {
		t.Fatal("expect request 3 to be rate limited")
	}
}

func TestChain(t *testing.T) {
	logger := zap.NewNop().Sugar()
	chained := Chain(LoggingMiddleware(logger), TimeoutMiddleware(500*time.Millisecond))
	handler := chained(echoHandler)

	if err := handler(context.Background(), testMsg()); err != nil {
		t.Fatalf("expect no error, got %v", err)
	}
}
