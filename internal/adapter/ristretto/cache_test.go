package ristretto_test

import (
	"context"
	"testing"
	"time"

	"github.com/Strob0t/ClawCouncil/internal/adapter/ristretto"
)

func TestCache_SetGetDelete(t *testing.T) {
	c, err := ristretto.New(1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	ctx := context.Background()

	if err := c.Set(ctx, "leaderboard", []byte(`[]`), time.Minute); err != nil {
		t.Fatal(err)
	}
	val, found, err := c.Get(ctx, "leaderboard")
	if err != nil || !found || string(val) != "[]" {
		t.Fatalf("Get = %q, %v, %v", val, found, err)
	}

	if err := c.Delete(ctx, "leaderboard"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := c.Get(ctx, "leaderboard"); found {
		t.Fatal("expected miss after Delete")
	}
}
