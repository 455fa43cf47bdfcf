package hub

import (
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestRegisterUnregister(t *testing.T) {
	h := NewHub()
	go h.Run()

	conn := h.NewConnection(nil)
	h.Register(conn)
	waitFor(t, func() bool { return h.ConnectionCount() == 1 })

	h.Unregister(conn)
	waitFor(t, func() bool { return h.ConnectionCount() == 0 })

	// Send must be closed so the write pump exits.
	if _, ok := <-conn.Send; ok {
		t.Fatal("expected Send to be closed after unregister")
	}
}

func TestBindRoom(t *testing.T) {
	h := NewHub()
	go h.Run()

	a := h.NewConnection(nil)
	b := h.NewConnection(nil)
	h.Register(a)
	h.Register(b)
	waitFor(t, func() bool { return h.ConnectionCount() == 2 })

	h.BindRoom(a, "ab12c", "English")
	h.BindRoom(b, "ab12c", "Hindi")

	if !h.HasBound("ab12c") {
		t.Fatal("expected room to have bound connections")
	}
	if h.BoundRoomCount() != 1 {
		t.Fatalf("expected 1 bound room, got %d", h.BoundRoomCount())
	}
	if a.Room != "ab12c" || a.Lang != "English" {
		t.Fatalf("unexpected bind state: %q %q", a.Room, a.Lang)
	}
}

func TestBroadcastReachesAllBoundConnections(t *testing.T) {
	h := NewHub()
	go h.Run()

	a := h.NewConnection(nil)
	b := h.NewConnection(nil)
	other := h.NewConnection(nil)
	h.Register(a)
	h.Register(b)
	h.Register(other)
	waitFor(t, func() bool { return h.ConnectionCount() == 3 })

	h.BindRoom(a, "ab12c", "English")
	h.BindRoom(b, "ab12c", "Hindi")
	h.BindRoom(other, "zz99z", "French")

	h.Broadcast("ab12c", []byte("hello"))

	for _, conn := range []*Connection{a, b} {
		select {
		case data := <-conn.Send:
			if string(data) != "hello" {
				t.Fatalf("unexpected payload: %q", data)
			}
		case <-time.After(time.Second):
			t.Fatal("bound connection did not receive broadcast")
		}
	}

	select {
	case data := <-other.Send:
		t.Fatalf("connection in another room received %q", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastToEmptyRoomIsNoop(t *testing.T) {
	h := NewHub()
	go h.Run()

	// No connections bound anywhere; must not block or panic.
	h.Broadcast("ghost", []byte("hello"))

	conn := h.NewConnection(nil)
	h.Register(conn)
	waitFor(t, func() bool { return h.ConnectionCount() == 1 })
	h.BindRoom(conn, "ab12c", "English")

	// A later broadcast to a different, populated room still goes through.
	h.Broadcast("ab12c", []byte("after"))
	select {
	case data := <-conn.Send:
		if string(data) != "after" {
			t.Fatalf("unexpected payload: %q", data)
		}
	case <-time.After(time.Second):
		t.Fatal("broadcast after empty-room no-op was not delivered")
	}
}

func TestUnregisterLeavesOtherConnectionsBound(t *testing.T) {
	h := NewHub()
	go h.Run()

	a := h.NewConnection(nil)
	b := h.NewConnection(nil)
	h.Register(a)
	h.Register(b)
	waitFor(t, func() bool { return h.ConnectionCount() == 2 })
	h.BindRoom(a, "ab12c", "English")
	h.BindRoom(b, "ab12c", "Hindi")

	h.Unregister(a)
	waitFor(t, func() bool { return h.ConnectionCount() == 1 })

	if !h.HasBound("ab12c") {
		t.Fatal("room lost its remaining bound connection")
	}
}
