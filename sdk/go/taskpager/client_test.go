package taskpager

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"taskpager/internal/api"
	"taskpager/internal/task"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	server := api.NewServer(":0", task.NewService(task.NewMemoryStore(), nil))
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestCreateAndWalk(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	created := make([]Task, 0, 7)
	for i := 0; i < 7; i++ {
		task, err := client.CreateTask(ctx, NewTask{Title: fmt.Sprintf("task %d", i)})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if task.Status != "todo" || task.Priority != 1 {
			t.Fatalf("server defaults not applied: %+v", task)
		}
		created = append(created, task)
	}

	var walked []string
	if err := client.Walk(ctx, ListParams{Limit: 3}, func(task Task) error {
		walked = append(walked, task.ID)
		return nil
	}); err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(walked) != len(created) {
		t.Fatalf("walked %d tasks, created %d", len(walked), len(created))
	}
	seen := make(map[string]bool)
	for _, id := range walked {
		if seen[id] {
			t.Fatalf("task %s visited twice", id)
		}
		seen[id] = true
	}
	for _, task := range created {
		if !seen[task.ID] {
			t.Fatalf("task %s never visited", task.ID)
		}
	}
}

func TestWalkStopsEarly(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if _, err := client.CreateTask(ctx, NewTask{Title: "t", Status: "done"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	count := 0
	err := client.Walk(ctx, ListParams{Limit: 1, Status: "done"}, func(Task) error {
		count++
		if count == 2 {
			return ErrStopWalk
		}
		return nil
	})
	if err != nil || count != 2 {
		t.Fatalf("walk: count=%d err=%v", count, err)
	}
}

func TestAPIErrors(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.ListTasks(ctx, ListParams{Limit: 51})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "limit must be between 1 and 50" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}

	_, err = client.CreateTask(ctx, NewTask{Title: "x", Status: "later"})
	if !errors.As(err, &apiErr) || apiErr.Message != "invalid status" {
		t.Fatalf("unexpected create error: %v", err)
	}
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	if _, err := NewClient("localhost", nil); err == nil {
		t.Fatalf("expected error for url without scheme")
	}
}
