package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/firstflame-backend/internal/platform/ctxutil"
	"github.com/yungbote/firstflame-backend/internal/platform/logger"
)

func newTestAuth(t *testing.T) *authService {
	t.Helper()
	svc, err := NewAuthService(logger.NewNop(), "test-secret", "firstflame", time.Minute)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return svc.(*authService)
}

func TestAuthServiceRoundTrip(t *testing.T) {
	as := newTestAuth(t)
	userID, sessionID := uuid.New(), uuid.New()
	tok, err := as.IssueToken(userID, sessionID)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	ctx, err := as.SetContextFromToken(context.Background(), tok)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID != userID || rd.SessionID != sessionID || rd.TokenString != tok {
		t.Fatalf("request data: got=%+v", rd)
	}
}

func TestAuthServiceRejectsBadTokens(t *testing.T) {
	as := newTestAuth(t)
	if _, err := as.SetContextFromToken(context.Background(), ""); err == nil {
		t.Fatalf("empty token accepted")
	}

	tok, _ := as.IssueToken(uuid.New(), uuid.Nil)
	if _, err := as.SetContextFromToken(context.Background(), tok[:len(tok)-2]+"xx"); err == nil {
		t.Fatalf("tampered token accepted")
	}

	other, _ := NewAuthService(logger.NewNop(), "other-secret", "firstflame", time.Minute)
	foreign, _ := other.IssueToken(uuid.New(), uuid.Nil)
	if _, err := as.SetContextFromToken(context.Background(), foreign); err == nil {
		t.Fatalf("token signed with another secret accepted")
	}

	as.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _ := as.IssueToken(uuid.New(), uuid.Nil)
	as.now = time.Now
	if _, err := as.SetContextFromToken(context.Background(), expired); err == nil || !strings.Contains(err.Error(), "expired") {
		t.Fatalf("expired token: got err=%v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: uuid.New().String()})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := as.SetContextFromToken(context.Background(), unsigned); err == nil {
		t.Fatalf("unsigned token accepted")
	}
}

func TestNewAuthServiceRequiresSecret(t *testing.T) {
	if _, err := NewAuthService(logger.NewNop(), " ", "", 0); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
