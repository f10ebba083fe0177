package envutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("FF_INT", "42")
	t.Setenv("FF_BAD_INT", "x")
	t.Setenv("FF_BOOL", "yes")
	t.Setenv("FF_MS", "1500")
	t.Setenv("FF_NEG_MS", "-5")
	t.Setenv("FF_LIST", " a, ,b ")

	if got := Int("FF_INT", 1); got != 42 {
		t.Fatalf("Int: want=42 got=%d", got)
	}
	if got := Int("FF_BAD_INT", 7); got != 7 {
		t.Fatalf("Int(bad): want=7 got=%d", got)
	}
	if got := Int("FF_MISSING", 9); got != 9 {
		t.Fatalf("Int(missing): want=9 got=%d", got)
	}
	if !Bool("FF_BOOL", false) {
		t.Fatalf("Bool: want=true")
	}
	if got := Millis("FF_MS", time.Second); got != 1500*time.Millisecond {
		t.Fatalf("Millis: got=%v", got)
	}
	if got := Millis("FF_NEG_MS", time.Second); got != 0 {
		t.Fatalf("Millis(neg): got=%v", got)
	}
	if got := List("FF_LIST", nil); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("List: got=%v", got)
	}
	if got := String("FF_MISSING", "def"); got != "def" {
		t.Fatalf("String: got=%q", got)
	}
}

func TestLoadDotenvSkipsMissingAndKeepsSetVars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("FF_DOTENV_NEW=from-file\nFF_DOTENV_SET=from-file\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("FF_DOTENV_SET", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("FF_DOTENV_NEW") })

	if err := LoadDotenv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadDotenv: %v", err)
	}
	if got := String("FF_DOTENV_NEW", ""); got != "from-file" {
		t.Fatalf("new var: want=from-file got=%q", got)
	}
	if got := String("FF_DOTENV_SET", ""); got != "from-env" {
		t.Fatalf("set var: want=from-env got=%q", got)
	}
}
