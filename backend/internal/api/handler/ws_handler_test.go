package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"valve-vault/backend/pkg/notify"
)

func newWSServer(t *testing.T, hub *notify.Hub, withAuth bool) *httptest.Server {
	t.Helper()
	h := NewWSHandler(hub, nil, zap.NewNop())
	r := gin.New()
	if withAuth {
		r.GET("/ws", authed(h.Subscribe))
	} else {
		r.GET("/ws", h.Subscribe)
	}
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
}

func waitSubscribers(t *testing.T, hub *notify.Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() < n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers, got %d", n, hub.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWSHandler_DeliversMatchingEvents(t *testing.T) {
	hub := notify.NewHub(8, zap.NewNop())
	srv := newWSServer(t, hub, true)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?topics=code_requests:req-1"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	waitSubscribers(t, hub, 1)

	ctx := context.Background()
	hub.Publish(ctx, notify.Event{Topic: notify.TopicCodeRequests, SubjectID: "req-2", Kind: "claim"})
	hub.Publish(ctx, notify.Event{Topic: notify.TopicCodeRequests, SubjectID: "req-1", Kind: "approval"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got notify.Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got.SubjectID != "req-1" || got.Kind != "approval" {
		t.Errorf("expected req-1/approval, got %s/%s", got.SubjectID, got.Kind)
	}
}

func TestWSHandler_ClosingConnectionUnsubscribes(t *testing.T) {
	hub := notify.NewHub(8, zap.NewNop())
	srv := newWSServer(t, hub, true)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?topics=inventory_counts"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	waitSubscribers(t, hub, 1)

	_ = conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected subscription to be released, still %d", hub.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWSHandler_Unauthenticated(t *testing.T) {
	hub := notify.NewHub(8, zap.NewNop())
	srv := newWSServer(t, hub, false)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	if err == nil {
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 handshake response, got %v", resp)
	}
	if hub.Len() != 0 {
		t.Errorf("expected no subscribers, got %d", hub.Len())
	}
}
