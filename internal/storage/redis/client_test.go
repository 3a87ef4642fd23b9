package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestOpenPingsServer(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := Open(context.Background(), Config{Address: srv.Addr()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer client.Close()

	if err := client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := srv.Get("k"); got != "v" {
		t.Fatalf("unexpected value %q", got)
	}
}

func TestOpenFailsWhenUnreachable(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	if _, err := Open(context.Background(), Config{Address: addr}); err == nil {
		t.Fatalf("expected error for closed server")
	}
	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for empty address")
	}
}
