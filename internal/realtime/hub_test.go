package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{}

// newObserver spins up a websocket endpoint that attaches every connection to
// the hub with the given backlog, and dials it. It returns the dialed
// connection and a cleanup func.
func newObserver(t *testing.T, hub *Hub, backlog [][]byte) (*websocket.Conn, func()) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Failed to upgrade: %v", err)
			return
		}
		hub.Attach(conn, backlog)
	}))

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		server.Close()
		t.Fatalf("Failed to dial: %v", err)
	}

	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	return string(frame)
}

func TestHub_BacklogThenBroadcast(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	backlog := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	conn, cleanup := newObserver(t, hub, backlog)
	defer cleanup()

	// Backlog frames arrive first, in order.
	for _, want := range []string{"one", "two", "three"} {
		if got := readFrame(t, conn); got != want {
			t.Errorf("Expected backlog frame %q, got %q", want, got)
		}
	}

	hub.Broadcast([]byte("live"))
	if got := readFrame(t, conn); got != "live" {
		t.Errorf("Expected broadcast frame %q, got %q", "live", got)
	}
}

func TestHub_BroadcastToMultipleClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn1, cleanup1 := newObserver(t, hub, nil)
	defer cleanup1()
	conn2, cleanup2 := newObserver(t, hub, nil)
	defer cleanup2()

	// Attach happens in the server handler; give both registrations a moment.
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast([]byte("broadcast_test"))

	for name, conn := range map[string]*websocket.Conn{"Client1": conn1, "Client2": conn2} {
		if got := readFrame(t, conn); got != "broadcast_test" {
			t.Errorf("%s: expected %q, got %q", name, "broadcast_test", got)
		}
	}
}

func TestHub_DisconnectedClientIsDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn, cleanup := newObserver(t, hub, nil)
	defer cleanup()

	survivor, survivorCleanup := newObserver(t, hub, nil)
	defer survivorCleanup()
	time.Sleep(50 * time.Millisecond)

	conn.Close()
	time.Sleep(50 * time.Millisecond)

	// Broadcasting after a disconnect must not stall or panic, and must still
	// reach the remaining observer.
	hub.Broadcast([]byte("after_close"))
	if got := readFrame(t, survivor); got != "after_close" {
		t.Errorf("Expected %q, got %q", "after_close", got)
	}
}
