package token

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/linkdeck/internal/common"
)

func testCodec() *Codec {
	return NewCodec("access-secret", "refresh-secret", time.Hour, 7*24*time.Hour)
}

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	c := testCodec()

	tok, err := c.IssueAccess("user-123", "a@b.com")
	if err != nil {
		t.Fatalf("IssueAccess error: %v", err)
	}

	claims, err := c.VerifyAccess(tok)
	if err != nil {
		t.Fatalf("VerifyAccess error: %v", err)
	}
	if claims.UserID != "user-123" || claims.Email != "a@b.com" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	c := NewCodec("a", "r", -1*time.Second, -1*time.Second)

	tok, err := c.IssueAccess("u1", "u1@x.com")
	if err != nil {
		t.Fatalf("IssueAccess error: %v", err)
	}

	if _, err := c.VerifyAccess(tok); err != common.ErrInvalidToken {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

func TestVerify_WrongKind(t *testing.T) {
	t.Parallel()

	c := testCodec()

	access, err := c.IssueAccess("u2", "u2@x.com")
	if err != nil {
		t.Fatalf("IssueAccess error: %v", err)
	}
	refresh, err := c.IssueRefresh("u2", "u2@x.com")
	if err != nil {
		t.Fatalf("IssueRefresh error: %v", err)
	}

	// Each codec side must fail closed on the other side's tokens.
	if _, err := c.VerifyRefresh(access); err != common.ErrInvalidToken {
		t.Fatalf("expected refresh verification of access token to fail, got %v", err)
	}
	if _, err := c.VerifyAccess(refresh); err != common.ErrInvalidToken {
		t.Fatalf("expected access verification of refresh token to fail, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := testCodec().IssueAccess("u3", "u3@x.com")
	if err != nil {
		t.Fatalf("IssueAccess error: %v", err)
	}

	other := NewCodec("different", "secrets", time.Hour, time.Hour)
	if _, err := other.VerifyAccess(tok); err != common.ErrInvalidToken {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	if _, err := testCodec().VerifyAccess("not.a.jwt"); err != common.ErrInvalidToken {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}
