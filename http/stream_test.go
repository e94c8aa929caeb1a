package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestSpiralStream(t *testing.T) {
	srv := httptest.NewServer(NewHandler(DefaultServerConfig(), newTestAPI(t, nil)))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/spiral?samples=10&classes=3&seed=5"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	for c := 0; c < 3; c++ {
		var msg classMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read class %d: %v", c, err)
		}
		if msg.Class != c || len(msg.X) != 10 || len(msg.Y) != 10 {
			t.Fatalf("unexpected message for class %d: class=%d x=%d y=%d", c, msg.Class, len(msg.X), len(msg.Y))
		}
		for _, label := range msg.Y {
			if label != c {
				t.Fatalf("class %d message carries label %d", c, label)
			}
		}
	}

	var done doneMessage
	if err := conn.ReadJSON(&done); err != nil {
		t.Fatalf("read done: %v", err)
	}
	if !done.Done || done.Points != 30 {
		t.Fatalf("unexpected done message: %+v", done)
	}

	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal closure, got %v", err)
	}
}

func TestSpiralStreamRejectsInvalidParameters(t *testing.T) {
	srv := httptest.NewServer(NewHandler(DefaultServerConfig(), newTestAPI(t, nil)))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/spiral?classes=0"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 response, got %v", resp)
	}
}
