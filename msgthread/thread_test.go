package msgthread

import (
	"testing"
	"time"

	"github.com/go-netty/go-netty-message/message"
)

func TestThreadEchoesMessagesToOwner(t *testing.T) {
	th := New(WithMessageHandler(func(t *Thread, msg *message.Message) error {
		return t.SendMessageToOwner(msg)
	}))
	if err := th.StartInternalThread(); err != nil {
		t.Fatalf("StartInternalThread: %v", err)
	}

	in := message.New(42)
	_ = in.AddString("hello", "world")
	if err := th.SendMessageToInternalThread(in); err != nil {
		t.Fatalf("SendMessageToInternalThread: %v", err)
	}

	reply, ok := th.GetNextReplyFromInternalThread(time.Now().Add(time.Second))
	if !ok {
		t.Fatal("expected a reply before the deadline")
	}
	if !in.Equal(reply) {
		t.Fatalf("reply mismatch: want %+v got %+v", in, reply)
	}

	if err := th.ShutdownInternalThread(); err != nil {
		t.Fatalf("ShutdownInternalThread: %v", err)
	}
}

func TestWaitForNextMessageTimesOut(t *testing.T) {
	th := New()
	_, ok := th.WaitForNextMessageFromOwner(time.Now().Add(20 * time.Millisecond))
	if ok {
		t.Fatal("expected a timeout with no messages queued")
	}
}

func TestShutdownBeforeStartReturnsError(t *testing.T) {
	th := New()
	if err := th.ShutdownInternalThread(); err != ErrNotStarted {
		t.Fatalf("got %v, want ErrNotStarted", err)
	}
}

func TestPipeWakeupRoundTrip(t *testing.T) {
	th, err := NewWithPipeWakeup(WithMessageHandler(func(t *Thread, msg *message.Message) error {
		return t.SendMessageToOwner(msg)
	}))
	if err != nil {
		t.Fatalf("NewWithPipeWakeup: %v", err)
	}
	if err := th.StartInternalThread(); err != nil {
		t.Fatalf("StartInternalThread: %v", err)
	}

	in := message.New(7)
	_ = in.AddInt32("x", 99)
	if err := th.SendMessageToInternalThread(in); err != nil {
		t.Fatalf("SendMessageToInternalThread: %v", err)
	}

	reply, ok := th.GetNextReplyFromInternalThread(time.Now().Add(time.Second))
	if !ok || !in.Equal(reply) {
		t.Fatalf("unexpected reply: ok=%v reply=%+v", ok, reply)
	}

	if err := th.ShutdownInternalThread(); err != nil {
		t.Fatalf("ShutdownInternalThread: %v", err)
	}
}

func TestNilSentinelStopsDefaultLoopWithoutHandler(t *testing.T) {
	th := New()
	if err := th.StartInternalThread(); err != nil {
		t.Fatalf("StartInternalThread: %v", err)
	}
	if err := th.ShutdownInternalThread(); err != nil {
		t.Fatalf("ShutdownInternalThread: %v", err)
	}
}
