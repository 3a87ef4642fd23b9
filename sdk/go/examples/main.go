package main

import (
	"context"
	"fmt"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"

	"taskpager/internal/api"
	"taskpager/internal/task"
	"taskpager/sdk/go/taskpager"
)

func main() {
	gin.SetMode(gin.ReleaseMode)
	server := api.NewServer(":0", task.NewService(task.NewMemoryStore(), nil))
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	client, err := taskpager.NewClient(srv.URL, srv.Client())
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, title := range []string{"write design", "implement store", "ship"} {
		created, err := client.CreateTask(ctx, taskpager.NewTask{Title: title})
		if err != nil {
			panic(err)
		}
		fmt.Printf("created %s (%s)\n", created.ID, created.Title)
	}

	n := 0
	err = client.Walk(ctx, taskpager.ListParams{Limit: 2}, func(t taskpager.Task) error {
		n++
		fmt.Printf("%d. %s %s status=%s\n", n, t.CreatedAt.Format(time.RFC3339Nano), t.Title, t.Status)
		return nil
	})
	if err != nil {
		panic(err)
	}
}
