package session

import (
	"testing"
	"time"
)

func TestRegistryGetOrCreate(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()

	a := reg.GetOrCreate("a")
	if a.Status != StatusIdle {
		t.Fatalf("new record status=%q want=%q", a.Status, StatusIdle)
	}
	if a.SessionID != "a" {
		t.Fatalf("session id=%q want=a", a.SessionID)
	}

	again := reg.GetOrCreate("a")
	if again.CreatedAt != a.CreatedAt {
		t.Fatal("GetOrCreate created a second record for the same id")
	}
	if len(reg.List()) != 1 {
		t.Fatalf("list len=%d want=1", len(reg.List()))
	}
}

func TestRegistryListInsertionOrder(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	for _, id := range []string{"c", "a", "b"} {
		reg.GetOrCreate(id)
	}

	got := reg.List()
	want := []string{"c", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("list len=%d want=%d", len(got), len(want))
	}
	for i, s := range got {
		if s.SessionID != want[i] {
			t.Fatalf("list[%d]=%q want=%q", i, s.SessionID, want[i])
		}
	}
}

func TestRegistryUpdateBumpsUpdatedAt(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	now := base
	reg.now = func() time.Time { return now }

	reg.GetOrCreate("a")

	now = base.Add(time.Second)
	snap := reg.Update("a", func(rec *Record) { rec.Status = StatusConnecting })
	if !snap.UpdatedAt.Equal(base.Add(time.Second)) {
		t.Fatalf("UpdatedAt=%v want=%v", snap.UpdatedAt, base.Add(time.Second))
	}

	// A clock that goes backwards must not decrease UpdatedAt.
	now = base.Add(-time.Minute)
	snap = reg.Update("a", func(rec *Record) { rec.Status = StatusConnected })
	if !snap.UpdatedAt.Equal(base.Add(time.Second)) {
		t.Fatalf("UpdatedAt moved backwards: %v", snap.UpdatedAt)
	}
}

func TestRegistryRemove(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.GetOrCreate("a")
	reg.GetOrCreate("b")

	if !reg.Remove("a") {
		t.Fatal("Remove(a)=false want=true")
	}
	if reg.Remove("a") {
		t.Fatal("second Remove(a)=true want=false")
	}

	got := reg.List()
	if len(got) != 1 || got[0].SessionID != "b" {
		t.Fatalf("list after remove=%v", got)
	}
	if _, ok := reg.Get("a"); ok {
		t.Fatal("Get(a) still present after Remove")
	}
}

func TestSnapshotDoesNotAliasRecord(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Update("a", func(rec *Record) {
		rec.Pairing = &PairingChallenge{Code: "code", Image: "img"}
	})

	snap, _ := reg.Get("a")
	snap.Pairing.Code = "mutated"

	fresh, _ := reg.Get("a")
	if fresh.Pairing.Code != "code" {
		t.Fatal("snapshot mutation leaked into the registry record")
	}
}
