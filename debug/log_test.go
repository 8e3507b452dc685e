package debug

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnableWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "debug.log")
	if err := Enable(path); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	Log("test", "hello %d", 42)
	for i := 0; i < 4; i++ {
		LogEvery(2, "every", "tick")
	}
	Disable()
	Log("test", "after disable")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"hello 42"`) || !strings.Contains(out, `"cat":"test"`) {
		t.Fatalf("log missing message: %s", out)
	}
	if strings.Contains(out, "after disable") {
		t.Fatalf("logged after Disable: %s", out)
	}
	if n := strings.Count(out, `"cat":"every"`); n != 2 {
		t.Fatalf("LogEvery wrote %d lines; want 2", n)
	}
}

func TestLogWhileDisabled(t *testing.T) {
	Disable()
	Log("test", "dropped")
	if L() == nil {
		t.Fatalf("L() returned nil while disabled")
	}
}
