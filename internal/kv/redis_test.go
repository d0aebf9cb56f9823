package kv

import (
	"bytes"
	"context"
	"testing"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"
)

// startRedis starts a Redis testcontainer, returns URL + cleanup func.
func startRedis(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("redis endpoint: %v", err)
	}
	return "redis://" + endpoint
}

func TestRedisStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()
	url := startRedis(ctx, t)

	store, err := NewRedisStore(url, zap.NewNop())
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	defer store.Close()

	// Missing key reads as absent, not an error.
	v, err := store.Get(ctx, "reverie:test:snapshot")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if v != nil {
		t.Errorf("got %q for missing key, want nil", v)
	}

	payload := []byte(`[{"category":"axiom","concept":"coffee","edges":[]}]`)
	if err := store.Put(ctx, "reverie:test:snapshot", payload); err != nil {
		t.Fatalf("put: %v", err)
	}

	v, err = store.Get(ctx, "reverie:test:snapshot")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(v, payload) {
		t.Errorf("round-trip mismatch: got %q", v)
	}

	// Last write wins under the coalescing contract.
	if err := store.Put(ctx, "reverie:test:snapshot", []byte("second")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, _ = store.Get(ctx, "reverie:test:snapshot")
	if !bytes.Equal(v, []byte("second")) {
		t.Errorf("got %q after overwrite, want %q", v, "second")
	}
}

func TestRedisStoreBadURL(t *testing.T) {
	if _, err := NewRedisStore("not-a-url", zap.NewNop()); err == nil {
		t.Error("expected error for malformed redis url")
	}
}
