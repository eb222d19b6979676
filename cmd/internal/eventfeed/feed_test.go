package eventfeed

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"courier/cmd/internal/session"
)

func testFeed() *Feed {
	return NewFeed(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFeedFanout(t *testing.T) {
	t.Parallel()

	f := testFeed()
	c1 := NewClient("c1", 4)
	c2 := NewClient("c2", 4)
	f.Join(c1)
	f.Join(c2)

	f.SessionStatus(session.StatusEvent{SessionID: "s1", Status: session.StatusConnected})

	for _, c := range []*Client{c1, c2} {
		select {
		case env := <-c.Send:
			if env.V != Version || env.Type != TypeSessionStatus || env.ID == "" {
				t.Fatalf("envelope=%+v", env)
			}
			var p StatusPayload
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				t.Fatalf("payload: %v", err)
			}
			if p.SessionID != "s1" || p.Status != "connected" {
				t.Fatalf("payload=%+v", p)
			}
		default:
			t.Fatalf("client %s received nothing", c.ID)
		}
	}
}

func TestFeedBroadcastDropsOnBackpressure(t *testing.T) {
	t.Parallel()

	f := testFeed()
	c := NewClient("c1", 1)
	f.Join(c)

	// Queue size 1: the second broadcast must drop, not block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.Broadcast(NewEnvelope(TypeSessionStatus, nil, time.Now()))
		f.Broadcast(NewEnvelope(TypeSessionStatus, nil, time.Now()))
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a full client queue")
	}
	if len(c.Send) != 1 {
		t.Fatalf("queued=%d want=1", len(c.Send))
	}
}

func TestFeedLeaveStopsDelivery(t *testing.T) {
	t.Parallel()

	f := testFeed()
	c := NewClient("c1", 4)
	f.Join(c)
	f.Leave("c1")

	select {
	case <-c.Done():
	default:
		t.Fatal("Leave did not close the client")
	}

	f.Broadcast(NewEnvelope(TypeSessionStatus, nil, time.Now()))
	if len(c.Send) != 0 {
		t.Fatal("broadcast delivered to a departed client")
	}

	// Leave of an unknown client is a no-op.
	f.Leave("ghost")
}

func TestClientCloseIdempotent(t *testing.T) {
	t.Parallel()

	c := NewClient("c1", 0) // zero queue size falls back to default
	if cap(c.Send) == 0 {
		t.Fatal("queue size default not applied")
	}
	c.Close()
	c.Close() // must not panic

	var nilClient *Client
	select {
	case <-nilClient.Done():
	default:
		t.Fatal("nil client Done() not closed")
	}
}

func TestNewEnvelopeIDsSortByTime(t *testing.T) {
	t.Parallel()

	early := NewEnvelope(TypeSessionStatus, nil, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	late := NewEnvelope(TypeSessionStatus, nil, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	if !(early.ID < late.ID) {
		t.Fatalf("ULIDs not time-ordered: %s >= %s", early.ID, late.ID)
	}
	if zero := NewEnvelope(TypeSessionStatus, nil, time.Time{}); zero.ID == "" {
		t.Fatal("zero timestamp produced empty id")
	}
}
