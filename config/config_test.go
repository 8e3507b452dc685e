package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.FrameInterval() != 50*time.Millisecond {
		t.Fatalf("FrameInterval=%v", cfg.FrameInterval())
	}
}

func TestLoadFile_MissingGivesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Renderer != RendererTUI || time.Duration(cfg.Lookback) != 2*time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadFile_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := []byte(`{
		"renderer": "text",
		"port": "Keystation",
		"lookback": "500ms",
		"fps": 30
	}`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Renderer != RendererText {
		t.Fatalf("renderer=%q", cfg.Renderer)
	}
	if cfg.Port != "Keystation" {
		t.Fatalf("port=%q", cfg.Port)
	}
	if time.Duration(cfg.Lookback) != 500*time.Millisecond {
		t.Fatalf("lookback=%v", time.Duration(cfg.Lookback))
	}
	if cfg.FPS != 30 {
		t.Fatalf("fps=%d", cfg.FPS)
	}
	// untouched keys keep their defaults
	if cfg.ExcludedPorts != nil || cfg.Palette != "" {
		t.Fatalf("unset keys changed: %+v", cfg)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"syntax":   `{"renderer":`,
		"renderer": `{"renderer":"curses"}`,
		"fps":      `{"fps":-1}`,
		"lookback": `{"lookback":"-2s"}`,
		"duration": `{"lookback":2}`,
	}
	for name, body := range cases {
		path := filepath.Join(dir, name+".json")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFile(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDuration_JSON(t *testing.T) {
	b, err := json.Marshal(Duration(1500 * time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"1.5s"` {
		t.Fatalf("marshal=%s", b)
	}
	var d Duration
	if err := json.Unmarshal([]byte(`"250ms"`), &d); err != nil {
		t.Fatal(err)
	}
	if time.Duration(d) != 250*time.Millisecond {
		t.Fatalf("unmarshal=%v", time.Duration(d))
	}
}

func TestSaveFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	cfg := DefaultConfig()
	cfg.Renderer = RendererText
	cfg.Palette = "/tmp/plasma.gpl"
	if err := cfg.SaveFile(path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	got, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Renderer != RendererText || got.Palette != cfg.Palette || got.Lookback != cfg.Lookback {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}
