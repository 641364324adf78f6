package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/engine/auth"
)

func TestIssueAndVerify(t *testing.T) {
	token, err := auth.Issue("s3cret", "owner-1", "Aura Knot", time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	owner, err := auth.Verify(token, "s3cret")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if owner != "owner-1" {
		t.Fatalf("expected owner-1, got %s", owner)
	}
	if _, err := auth.Verify(token, "other"); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := auth.Issue("s3cret", "owner-1", "", time.Now().Add(-2*time.Hour), time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := auth.Verify(token, "s3cret"); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestMissingInputs(t *testing.T) {
	if _, err := auth.Issue("", "owner-1", "", time.Now(), 0); !errors.Is(err, auth.ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
	if _, err := auth.Issue("s3cret", " ", "", time.Now(), 0); !errors.Is(err, auth.ErrNoSubject) {
		t.Fatalf("expected ErrNoSubject, got %v", err)
	}
	if _, err := auth.Verify("x.y.z", ""); !errors.Is(err, auth.ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
}
