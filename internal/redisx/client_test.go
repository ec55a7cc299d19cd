package redisx

import (
	"context"
	"testing"
	"time"
)

func TestConnectWithoutAddressIsDisabled(t *testing.T) {
	client, err := Connect(context.Background(), Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client != nil {
		t.Fatalf("expected nil client when redis is not configured")
	}
}

func TestOptions(t *testing.T) {
	cfg := Config{Addr: "redis:6379", Username: "dash", Password: "pw", DB: 2, TLSEnabled: true, DialTimeout: time.Second}
	opts := cfg.Options()
	if opts.Addr != "redis:6379" || opts.Username != "dash" || opts.DB != 2 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.InsecureSkipVerify {
		t.Fatalf("expected verifying TLS config, got %+v", opts.TLSConfig)
	}
}

func TestConnectUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := Connect(ctx, Config{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond}); err == nil {
		t.Fatal("expected ping failure")
	}
}
