package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"pollboard/pkg/types"
)

// connPair dials a websocket loop back through an httptest server and
// returns both ends.
func connPair(t *testing.T) (server *Connection, client *websocket.Conn) {
	t.Helper()

	serverCh := make(chan *Connection, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		serverCh <- NewConnection(ws, 16)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	select {
	case server = <-serverCh:
	case <-time.After(2 * time.Second):
		t.Fatal("server connection not established")
	}
	t.Cleanup(func() { _ = server.Close() })

	return server, client
}

func TestSendDeliversJSON(t *testing.T) {
	server, client := connPair(t)

	event := types.ServerEvent{Type: types.EventPollEnded}
	if err := server.Send(event); err != nil {
		t.Fatalf("Send: %v", err)
	}

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	var got types.ServerEvent
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != types.EventPollEnded {
		t.Errorf("received event type %q, want %q", got.Type, types.EventPollEnded)
	}
}

func TestConnectionIDsAreUnique(t *testing.T) {
	a, _ := connPair(t)
	b, _ := connPair(t)

	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("connection ids must be unique and non-empty: %q, %q", a.ID(), b.ID())
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	server, _ := connPair(t)

	if err := server.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := server.Send(types.ServerEvent{Type: types.EventPollEnded}); err != ErrConnectionClosed {
		t.Errorf("Send after Close = %v, want ErrConnectionClosed", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	server, _ := connPair(t)

	if err := server.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := server.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestSendDropsWhenBufferFull(t *testing.T) {
	// Construct a connection without a writer goroutine so nothing drains
	// the buffer.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn := &Connection{
		id:      "test",
		writeCh: make(chan []byte, 1),
		ctx:     ctx,
		cancel:  cancel,
	}

	if err := conn.Send(types.ServerEvent{Type: types.EventPollEnded}); err != nil {
		t.Fatalf("first Send: %v", err)
	}
	if err := conn.Send(types.ServerEvent{Type: types.EventPollEnded}); err != ErrSendBufferFull {
		t.Errorf("Send with full buffer = %v, want ErrSendBufferFull", err)
	}
}
