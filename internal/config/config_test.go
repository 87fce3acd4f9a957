package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if len(cfg.Providers) == 0 {
		t.Error("expected default providers")
	}
	or, ok := cfg.GetProvider("openrouter")
	if !ok || or.APIKey != "${OPENROUTER_API_KEY}" {
		t.Error("expected openrouter API key placeholder")
	}
	if !or.Enabled {
		t.Error("expected openrouter enabled by default")
	}
	if cfg.Pipeline.Workers <= 0 {
		t.Error("expected positive default worker count")
	}
	if cfg.Pipeline.QualityThreshold < 1 || cfg.Pipeline.QualityThreshold > 10 {
		t.Errorf("quality threshold out of range: %d", cfg.Pipeline.QualityThreshold)
	}
	if cfg.Models.Provider == "" || cfg.Models.Vision == "" {
		t.Error("expected default model selections")
	}
}

func TestEnabledProviders(t *testing.T) {
	cfg := &Config{
		Providers: map[string]ProviderCfg{
			"on":  {Type: "openrouter", Enabled: true},
			"off": {Type: "openai", Enabled: false},
		},
	}
	enabled := cfg.EnabledProviders()
	if len(enabled) != 1 {
		t.Fatalf("expected 1 enabled provider, got %d", len(enabled))
	}
	if _, ok := enabled["on"]; !ok {
		t.Error("expected provider 'on' to be enabled")
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		os.Setenv("TEST_API_KEY", "secret123")
		defer os.Unsetenv("TEST_API_KEY")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		configContent := `
pipeline:
  workers: 7
  quality_threshold: 4
`
		if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Pipeline.Workers != 7 {
			t.Errorf("expected 7 workers, got %d", cfg.Pipeline.Workers)
		}
		if cfg.Pipeline.QualityThreshold != 4 {
			t.Errorf("expected threshold 4, got %d", cfg.Pipeline.QualityThreshold)
		}
	})
}

func TestManager_OnChange_Multiple(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configFile, []byte("pipeline:\n  workers: 2\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configFile, []byte("pipeline:\n  workers: 2\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				cfg := mgr.Get()
				_ = cfg.Pipeline.Workers
			}
			done <- struct{}{}
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configFile, []byte("pipeline:\n  workers: 2\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	if got := mgr.Get().Pipeline.Workers; got != 2 {
		t.Errorf("initial value mismatch: expected 2, got %d", got)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Int32

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(int32(cfg.Pipeline.Workers))
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("pipeline:\n  workers: 9\n"), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	// Wait for the watcher to detect the change (fsnotify is async)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if callbackCount.Load() > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Error("callback was not invoked after config file change")
	}

	if got := mgr.Get().Pipeline.Workers; got != 9 {
		t.Errorf("config not updated: expected 9, got %d", got)
	}
	if v := lastValue.Load(); v != 9 {
		t.Errorf("callback received wrong value: expected 9, got %d", v)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	for _, section := range []string{"providers:", "models:", "pipeline:", "${OPENROUTER_API_KEY}"} {
		if !strings.Contains(content, section) {
			t.Errorf("default config missing %q:\n%s", section, content)
		}
	}
}
