package security

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/mycabs/identity/internal/infrastructure/queue"
)

func TestNewBcryptHasher_CostBounds(t *testing.T) {
	if h := NewBcryptHasher(0); h.cost != DefaultBcryptCost {
		t.Fatalf("expected default cost, got %d", h.cost)
	}
	if h := NewBcryptHasher(bcrypt.MaxCost + 1); h.cost != DefaultBcryptCost {
		t.Fatalf("expected default cost, got %d", h.cost)
	}
	if h := NewBcryptHasher(bcrypt.MinCost); h.cost != bcrypt.MinCost {
		t.Fatalf("expected min cost, got %d", h.cost)
	}
}

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "pw1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "pw1" || !strings.HasPrefix(hash, "$2a$") {
		t.Fatalf("unexpected hash format: %q", hash)
	}

	ok, err := h.Verify(ctx, "pw1", hash)
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}

	ok, err = h.Verify(ctx, "wrong", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch without error, got ok=%v err=%v", ok, err)
	}
}

func TestBcryptHasher_SaltsEachHash(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	a, _ := h.Hash(context.Background(), "same")
	b, _ := h.Hash(context.Background(), "same")
	if a == b {
		t.Fatalf("expected distinct hashes for the same password")
	}
}

func TestBcryptHasher_VerifyMalformedHash(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	ok, err := h.Verify(context.Background(), "pw", "not-a-bcrypt-hash")
	if err == nil || ok {
		t.Fatalf("expected error for malformed hash, got ok=%v err=%v", ok, err)
	}
}

func TestBcryptHasher_CancelledContext(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := h.Hash(ctx, "pw"); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestPooledHasher_DelegatesThroughPool(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := queue.NewPool(2, zerolog.Nop())
	pool.Start(ctx)
	h := NewPooledHasher(NewBcryptHasher(bcrypt.MinCost), pool)

	hash, err := h.Hash(ctx, "secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	ok, err := h.Verify(ctx, "secret", hash)
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}
	ok, err = h.Verify(ctx, "other", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch, got ok=%v err=%v", ok, err)
	}
}
