package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Runs != 3 || cfg.Warmup != 1 {
		t.Errorf("unexpected benchmark defaults: runs=%d warmup=%d", cfg.Runs, cfg.Warmup)
	}
	if cfg.MaxRounds != 2 {
		t.Errorf("MaxRounds = %d, want 2", cfg.MaxRounds)
	}
	if cfg.MinImprovePct != 10.0 {
		t.Errorf("MinImprovePct = %v, want 10.0", cfg.MinImprovePct)
	}
	if cfg.MaxToolSteps != 35 {
		t.Errorf("MaxToolSteps = %d, want 35", cfg.MaxToolSteps)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "model: test-model\nruns: 5\nrun_log: runs.db\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Model != "test-model" {
		t.Errorf("Model = %q, want test-model", cfg.Model)
	}
	if cfg.Runs != 5 {
		t.Errorf("Runs = %d, want 5", cfg.Runs)
	}
	if cfg.RunLog != "runs.db" {
		t.Errorf("RunLog = %q, want runs.db", cfg.RunLog)
	}

	// Untouched keys keep their defaults
	if cfg.Warmup != 1 || cfg.TimeoutS != 60 {
		t.Errorf("defaults lost on merge: warmup=%d timeout_s=%d", cfg.Warmup, cfg.TimeoutS)
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for explicitly named missing file")
	}
}

func TestLoadBadYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("model: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
