package tracker

import (
	"testing"

	"gallop.gg/internal/protocol"
)

func TestRacerOIDsMonotonicFromOne(t *testing.T) {
	tr := New()
	a := tr.AddRacer(100)
	b := tr.AddRacer(200)
	if a.OID != 1 || b.OID != 2 {
		t.Fatalf("oids = %d, %d, want 1, 2", a.OID, b.OID)
	}
	if again := tr.AddRacer(100); again != a {
		t.Fatal("re-adding a racer must return the existing entry")
	}

	tr.RemoveRacer(100)
	c := tr.AddRacer(300)
	if c.OID != 3 {
		t.Fatalf("oid after removal = %d, want 3 (no reuse)", c.OID)
	}
	if _, ok := tr.RacerByOID(1); ok {
		t.Fatal("removed racer still resolvable by oid")
	}
}

func TestNewRacerHasUnsetCourseTime(t *testing.T) {
	tr := New()
	r := tr.AddRacer(1)
	if r.CourseTime != CourseTimeUnset {
		t.Fatalf("course time = %d, want unset sentinel", r.CourseTime)
	}
	if r.Status != StatusWaiting {
		t.Fatalf("status = %d, want waiting", r.Status)
	}
}

func TestItemLifecycle(t *testing.T) {
	tr := New()
	tr.AddRacer(1)
	it := tr.SpawnItem(40000, protocol.Vec3{X: 1}, [4]float32{0, 0, 0, 1})
	if it.OID != 1 {
		t.Fatalf("item oid = %d, want 1", it.OID)
	}

	if !tr.Track(1, it.OID) {
		t.Fatal("first track must report newly tracked")
	}
	if tr.Track(1, it.OID) {
		t.Fatal("second track must be a no-op")
	}

	taken, ok := tr.TakeItem(it.OID)
	if !ok || taken.Available {
		t.Fatal("take must consume the item")
	}
	if tr.Tracked(1, it.OID) {
		t.Fatal("taking an item must clear it from tracked sets")
	}
	if _, ok := tr.TakeItem(it.OID); ok {
		t.Fatal("consumed item taken twice")
	}

	if _, ok := tr.RespawnItem(it.OID); !ok {
		t.Fatal("respawn failed")
	}
	if _, ok := tr.TakeItem(it.OID); !ok {
		t.Fatal("respawned item not takeable")
	}
}

func TestResetRacePreservesOIDs(t *testing.T) {
	tr := New()
	r := tr.AddRacer(1)
	r.Status = StatusFinishing
	r.CourseTime = 12345
	r.StarPoints = 9000
	r.Combo = 7
	r.MagicItem = 2
	gone := tr.AddRacer(2)
	gone.Status = StatusDisconnected
	tr.SpawnItem(40000, protocol.Vec3{}, [4]float32{})

	tr.ResetRace()

	if r.OID != 1 {
		t.Fatalf("oid changed across reset: %d", r.OID)
	}
	if r.Status != StatusWaiting || r.CourseTime != CourseTimeUnset || r.StarPoints != 0 || r.Combo != 0 || r.MagicItem != 0 {
		t.Fatalf("racer not rewound: %+v", r)
	}
	if gone.Status != StatusDisconnected {
		t.Fatal("reset must not resurrect disconnected racers")
	}
	if len(tr.Items()) != 0 {
		t.Fatal("items must be dropped on reset")
	}
	if it := tr.SpawnItem(40000, protocol.Vec3{}, [4]float32{}); it.OID != 1 {
		t.Fatalf("item oids restart at 1 after reset, got %d", it.OID)
	}
}
