package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherDetectsChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{}`), 0640); err != nil {
		t.Fatal(err)
	}

	changed := make(chan struct{}, 1)
	w := NewWatcher(path, 10*time.Millisecond, slog.Default(), func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	w.Start()
	defer w.Stop()

	// Backdate then rewrite so the mod time moves forward.
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)
	if err := os.WriteFile(path, []byte(`{"server": {}}`), 0640); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("change not detected")
	}
}

func TestWatcherStopIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{}`), 0640); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(path, time.Minute, slog.Default(), nil)
	w.Start()
	w.Stop()
	w.Stop()
}

func TestDiffReportsChangedSections(t *testing.T) {
	dataDir := t.TempDir()
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"server": {"dataDir": "` + dataDir + `"},
		"defaults": {"model": "claude-opus-4"},
		"providers": {"anthropic": {"apiKey": "sk"}}
	}`
	if err := os.WriteFile(path, []byte(content), 0640); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	report, err := cfg.Diff(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Changed) != 0 {
		t.Errorf("Changed = %v, want none for identical file", report.Changed)
	}

	updated := `{
		"server": {"dataDir": "` + dataDir + `"},
		"defaults": {"model": "gpt-4o"},
		"providers": {"anthropic": {"apiKey": "sk"}, "openai": {"apiKey": "sk2"}}
	}`
	if err := os.WriteFile(path, []byte(updated), 0640); err != nil {
		t.Fatal(err)
	}

	report, err = cfg.Diff(path)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"defaults": true, "providers": true}
	if len(report.Changed) != 2 {
		t.Fatalf("Changed = %v, want defaults and providers", report.Changed)
	}
	for _, section := range report.Changed {
		if !want[section] {
			t.Errorf("unexpected changed section %q", section)
		}
	}
}

func TestDiffInvalidFile(t *testing.T) {
	dataDir := t.TempDir()
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"server": {"dataDir": "` + dataDir + `"},
		"defaults": {"model": "claude-opus-4"}
	}`
	if err := os.WriteFile(path, []byte(content), 0640); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte(`{not json`), 0640); err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.Diff(path); err == nil {
		t.Error("expected error for unparseable file")
	}
}
