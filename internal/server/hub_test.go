package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"

	"github.com/tndhk/No26-todo-md/internal/store/file"
	"github.com/tndhk/No26-todo-md/internal/syncer"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestHubBroadcastsProjectUpdates(t *testing.T) {
	st, err := file.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	sy := syncer.New(st, nil)
	srv := New("127.0.0.1:0", st, sy, testLogger())
	if err := srv.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(func() { _ = srv.Stop() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+srv.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// First frame is the hello.
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read hello: %v", err)
	}
	var hello Message
	if err := json.Unmarshal(data, &hello); err != nil {
		t.Fatalf("unmarshal hello: %v", err)
	}
	if hello.Type != MessageTypeHello {
		t.Fatalf("first message type = %q", hello.Type)
	}

	p, err := st.CreateProject(ctx, "WS Project")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodPut,
		"http://"+srv.Addr()+"/api/projects/"+p.ID+"/document",
		strings.NewReader("- [ ] broadcast me\n"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT document: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put status = %d", resp.StatusCode)
	}

	_, data, err = conn.Read(ctx)
	if err != nil {
		t.Fatalf("read update: %v", err)
	}
	var update Message
	if err := json.Unmarshal(data, &update); err != nil {
		t.Fatalf("unmarshal update: %v", err)
	}
	if update.Type != MessageTypeProjectUpdate {
		t.Fatalf("message type = %q", update.Type)
	}
	var payload ProjectUpdateData
	if err := json.Unmarshal(update.Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.ProjectID != p.ID || payload.Result.Created != 1 {
		t.Errorf("payload = %+v", payload)
	}
}

func TestHubClientCount(t *testing.T) {
	h := NewHub(testLogger())
	h.Start()
	t.Cleanup(h.Stop)

	if got := h.ClientCount(); got != 0 {
		t.Errorf("ClientCount = %d, want 0", got)
	}
}
