package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stockroomhq/stockroom-backend/pkg/config"
)

func TestZeroValueClientGuards(t *testing.T) {
	ctx := context.Background()
	var c Client

	if err := c.Set(ctx, "k", "v", time.Minute); !errors.Is(err, errNotInitialized) {
		t.Fatalf("Set error = %v, want errNotInitialized", err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, errNotInitialized) {
		t.Fatalf("Get error = %v, want errNotInitialized", err)
	}
	if _, err := c.SetNX(ctx, "k", "v", time.Minute); !errors.Is(err, errNotInitialized) {
		t.Fatalf("SetNX error = %v, want errNotInitialized", err)
	}
	if err := c.Del(ctx, "k"); !errors.Is(err, errNotInitialized) {
		t.Fatalf("Del error = %v, want errNotInitialized", err)
	}
	if err := c.Ping(ctx); !errors.Is(err, errNotInitialized) {
		t.Fatalf("Ping error = %v, want errNotInitialized", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close on zero-value client: %v", err)
	}
}

func TestKeyNamespacing(t *testing.T) {
	var c Client

	if got := c.IdempotencyKey("POST|/api/v1/inventory/receive", "abc"); got != "stockroom:idempotency:POST|/api/v1/inventory/receive:abc" {
		t.Fatalf("IdempotencyKey = %q", got)
	}
	if got := c.LockKey("audit"); got != "stockroom:lock:audit" {
		t.Fatalf("LockKey = %q", got)
	}
	// Empty segments collapse instead of producing "::".
	if got := c.IdempotencyKey("", "abc"); got != "stockroom:idempotency:abc" {
		t.Fatalf("IdempotencyKey with empty scope = %q", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	t.Run("requires an endpoint", func(t *testing.T) {
		if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
			t.Fatal("expected error for empty config")
		}
	})

	t.Run("address config", func(t *testing.T) {
		opts, err := optionsFromConfig(config.RedisConfig{
			Address:      "localhost:6379",
			Password:     "s3cret",
			DB:           2,
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
		})
		if err != nil {
			t.Fatalf("optionsFromConfig: %v", err)
		}
		if opts.Addr != "localhost:6379" || opts.Password != "s3cret" || opts.DB != 2 {
			t.Fatalf("unexpected options: %+v", opts)
		}
		if opts.PoolSize != 10 || opts.MinIdleConns != 2 || opts.DialTimeout != 5*time.Second {
			t.Fatalf("pool settings not applied: %+v", opts)
		}
	})

	t.Run("url overrides address", func(t *testing.T) {
		opts, err := optionsFromConfig(config.RedisConfig{
			URL:      "redis://:pw@redis.internal:6380/3",
			Address:  "ignored:6379",
			PoolSize: 10,
		})
		if err != nil {
			t.Fatalf("optionsFromConfig: %v", err)
		}
		if opts.Addr != "redis.internal:6380" || opts.DB != 3 {
			t.Fatalf("url not applied: %+v", opts)
		}
		if opts.PoolSize != 10 {
			t.Fatalf("pool size fallback not applied: %+v", opts)
		}
	})

	t.Run("bad url", func(t *testing.T) {
		if _, err := optionsFromConfig(config.RedisConfig{URL: "://not-a-url"}); err == nil {
			t.Fatal("expected error for malformed url")
		}
	})
}
