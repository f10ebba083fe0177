package logger

import (
	"strings"
	"testing"
)

func TestSanitizeValueRedactsAndHashes(t *testing.T) {
	if got := sanitizeValue("access_token", "abc"); got != "[REDACTED]" {
		t.Fatalf("token: want=[REDACTED] got=%v", got)
	}
	got, ok := sanitizeValue("user_id", "0190c7a2-7d2e-7c1b-8e6f-1b2c3d4e5f60").(string)
	if !ok || !strings.HasPrefix(got, "hash:") || len(got) != len("hash:")+12 {
		t.Fatalf("user_id: unexpected hash %v", got)
	}
	if got := sanitizeValue("day", 3); got != 3 {
		t.Fatalf("day: want=3 got=%v", got)
	}
	jwtish := "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.sig"
	if got := sanitizeValue("note", jwtish); got != "[REDACTED]" {
		t.Fatalf("jwt-like value: want=[REDACTED] got=%v", got)
	}
}

func TestSanitizeKVsKeepsOddTrailingValue(t *testing.T) {
	out := sanitizeKVs([]interface{}{"stage", "attempt", "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("unexpected kvs: %+v", out)
	}
}

func TestNewTestModeBuilds(t *testing.T) {
	log, err := New("test")
	if err != nil {
		t.Fatalf("New(test): %v", err)
	}
	log.With("service", "x").Info("hello", "user_id", "u1")
	log.Sync()
}
