package authcore

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"
)

func testEvent(id string) AuditEvent {
	return AuditEvent{
		ID:        id,
		Timestamp: time.Now().UTC(),
		EventType: auditEventLoginSuccess,
		UserID:    "u1",
	}
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	sink := NewChannelSink(16)
	d := newAuditDispatcher(AuditConfig{BufferSize: 16}, sink)
	defer d.Close()

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), testEvent(strconv.Itoa(i)))
	}

	for i := 0; i < 5; i++ {
		select {
		case ev := <-sink.Events():
			if ev.ID != strconv.Itoa(i) {
				t.Fatalf("event %d: got id %q", i, ev.ID)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("event %d never arrived", i)
		}
	}
}

func TestDispatcher_DropsWhenSaturated(t *testing.T) {
	// An unbuffered-consumer sink that never reads: the dispatcher's own
	// queue fills and overflow must be counted, not block.
	blocked := make(chan struct{})
	sink := sinkFunc(func(ctx context.Context, _ AuditEvent) {
		select {
		case <-blocked:
		case <-ctx.Done():
		}
	})

	d := newAuditDispatcher(AuditConfig{BufferSize: 1}, sink)

	emitted := 10
	for i := 0; i < emitted; i++ {
		d.Emit(context.Background(), testEvent(strconv.Itoa(i)))
	}

	if d.Dropped() == 0 {
		t.Fatal("expected drops with a saturated queue")
	}
	if d.Dropped() >= uint64(emitted) {
		t.Fatalf("some events must still be queued, dropped %d of %d", d.Dropped(), emitted)
	}

	close(blocked)
	d.Close()
}

func TestDispatcher_CloseDrainsAndIsIdempotent(t *testing.T) {
	sink := NewChannelSink(16)
	d := newAuditDispatcher(AuditConfig{BufferSize: 16}, sink)

	d.Emit(context.Background(), testEvent("last"))
	d.Close()
	d.Close()

	select {
	case ev := <-sink.Events():
		if ev.ID != "last" {
			t.Fatalf("got id %q", ev.ID)
		}
	default:
		t.Fatal("Close must drain queued events before returning")
	}

	// After Close, emission is a no-op rather than a panic.
	d.Emit(context.Background(), testEvent("late"))
}

type sinkFunc func(ctx context.Context, event AuditEvent)

func (f sinkFunc) Emit(ctx context.Context, event AuditEvent) { f(ctx, event) }

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	ev := testEvent("j1")
	ev.Details = map[string]string{"ip": "hashed"}
	sink.Emit(context.Background(), ev)

	var decoded AuditEvent
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not one JSON document per line: %v", err)
	}
	if decoded.ID != "j1" || decoded.EventType != auditEventLoginSuccess {
		t.Fatalf("roundtrip mismatch: %+v", decoded)
	}
	if decoded.Details["ip"] != "hashed" {
		t.Fatalf("details lost: %+v", decoded.Details)
	}
}

func TestChannelSink_DropsOnCancelledContext(t *testing.T) {
	sink := NewChannelSink(1)
	sink.Emit(context.Background(), testEvent("fills-buffer"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		sink.Emit(ctx, testEvent("blocked"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit must return once ctx is cancelled")
	}
}

func TestDispatcher_ExplicitBufferSizeStillDrops(t *testing.T) {
	// Sizing the buffer must not silently opt the caller into
	// backpressure; only BlockWhenFull does that.
	cfg := Config{Audit: AuditConfig{BufferSize: 1}}
	cfg.applyDefaults()

	blocked := make(chan struct{})
	sink := sinkFunc(func(ctx context.Context, _ AuditEvent) {
		select {
		case <-blocked:
		case <-ctx.Done():
		}
	})
	d := newAuditDispatcher(cfg.Audit, sink)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			d.Emit(context.Background(), testEvent(strconv.Itoa(i)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit must not block when only the buffer size is configured")
	}
	if d.Dropped() == 0 {
		t.Fatal("expected overflow to be dropped")
	}

	close(blocked)
	d.Close()
}

func TestDispatcher_CloseBoundedByDrainTimeout(t *testing.T) {
	// A sink whose consumer stopped: its buffer is full and nothing reads.
	sink := NewChannelSink(1)
	sink.Emit(context.Background(), testEvent("wedge"))

	d := newAuditDispatcher(AuditConfig{BufferSize: 4, DrainTimeout: 50 * time.Millisecond}, sink)
	for i := 0; i < 4; i++ {
		d.Emit(context.Background(), testEvent(strconv.Itoa(i)))
	}

	done := make(chan struct{})
	go func() {
		d.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close must give up on a stalled sink after the drain timeout")
	}
}
