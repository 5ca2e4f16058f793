package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/tndhk/No26-todo-md/internal/store/file"
	"github.com/tndhk/No26-todo-md/internal/syncer"
	"github.com/tndhk/No26-todo-md/internal/task"
)

func startTestServer(t *testing.T) (*Server, *file.Store, string) {
	t.Helper()
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
	return srv, st, "http://" + srv.Addr()
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, data
}

func TestHealthEndpoint(t *testing.T) {
	_, _, base := startTestServer(t)

	resp, body := doJSON(t, http.MethodGet, base+"/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got map[string]any
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["status"] != "ok" {
		t.Errorf("body = %s", body)
	}
}

func TestProjectEndpoints(t *testing.T) {
	_, _, base := startTestServer(t)

	resp, body := doJSON(t, http.MethodPost, base+"/api/projects", map[string]string{"title": "API Project"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d: %s", resp.StatusCode, body)
	}
	var p task.Project
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("unmarshal project: %v", err)
	}
	if p.ID == "" || p.Title != "API Project" {
		t.Errorf("project = %+v", p)
	}

	resp, body = doJSON(t, http.MethodGet, base+"/api/projects", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var list []task.Project
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(list) != 1 || list[0].ID != p.ID {
		t.Errorf("list = %+v", list)
	}

	resp, _ = doJSON(t, http.MethodDelete, base+"/api/projects/"+p.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodDelete, base+"/api/projects/"+p.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("double delete status = %d", resp.StatusCode)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	_, _, base := startTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, base+"/api/projects", map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing title status = %d", resp.StatusCode)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	_, st, base := startTestServer(t)
	ctx := context.Background()

	p, err := st.CreateProject(ctx, "Docs")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	doc := "# Docs\n\n## Todo\n- [ ] write handler #due:2026-04-01\n"
	req, _ := http.NewRequest(http.MethodPut, base+"/api/projects/"+p.ID+"/document", strings.NewReader(doc))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT document: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put status = %d: %s", resp.StatusCode, body)
	}
	var result syncer.Result
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result.Created != 1 {
		t.Errorf("result = %+v", result)
	}

	resp, body = doJSON(t, http.MethodGet, base+"/api/projects/"+p.ID+"/document", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	if string(body) != doc {
		t.Errorf("document = %q, want %q", body, doc)
	}
}

func TestPutDocumentValidationFailure(t *testing.T) {
	_, st, base := startTestServer(t)

	p, err := st.CreateProject(context.Background(), "Docs")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	doc := "- [ ] bad #due:2026-99-01 #due:2026-01-01\n"
	req, _ := http.NewRequest(http.MethodPut, base+"/api/projects/"+p.ID+"/document", strings.NewReader(doc))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT document: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}

	var got struct {
		Error  string `json:"error"`
		Detail []struct {
			Line    int    `json:"line"`
			Message string `json:"message"`
		} `json:"detail"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Detail) != 1 || got.Detail[0].Line != 1 {
		t.Errorf("detail = %+v", got.Detail)
	}
}

func TestGetDocumentMissingProject(t *testing.T) {
	_, _, base := startTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, base+"/api/projects/nope/document", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestCompleteTaskEndpoint(t *testing.T) {
	_, st, base := startTestServer(t)
	ctx := context.Background()

	p, _ := st.CreateProject(ctx, "P")
	due := task.Date{Year: 2026, Month: 2, Day: 25}
	created, err := st.CreateTask(ctx, p.ID, task.Skeleton{Content: "review", DueDate: &due, Repeat: task.RepeatWeekly}, 0)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	url := fmt.Sprintf("%s/api/projects/%s/tasks/%s/complete", base, p.ID, created.ID)
	resp, body := doJSON(t, http.MethodPost, url, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}

	var got struct {
		Completed bool       `json:"completed"`
		Next      *task.Task `json:"next"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Completed || got.Next == nil {
		t.Fatalf("body = %s", body)
	}
	if got.Next.DueDate == nil || *got.Next.DueDate != (task.Date{Year: 2026, Month: 3, Day: 4}) {
		t.Errorf("next due = %v", got.Next.DueDate)
	}
}
