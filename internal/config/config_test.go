package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("IAVIDO_DATA_DIR", "/tmp/iavido-test")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port() != DefaultPort {
		t.Errorf("Port() = %d, want %d", cfg.Port(), DefaultPort)
	}
	if cfg.LogLevel() != DefaultLogLevel {
		t.Errorf("LogLevel() = %q, want %q", cfg.LogLevel(), DefaultLogLevel)
	}
	if cfg.ServiceURL() != DefaultServiceURL {
		t.Errorf("ServiceURL() = %q, want %q", cfg.ServiceURL(), DefaultServiceURL)
	}
	if cfg.PollInterval() != DefaultPollInterval {
		t.Errorf("PollInterval() = %v, want %v", cfg.PollInterval(), DefaultPollInterval)
	}
	if cfg.HTTPTimeout() != DefaultHTTPTimeout {
		t.Errorf("HTTPTimeout() = %v, want %v", cfg.HTTPTimeout(), DefaultHTTPTimeout)
	}
	if cfg.Headless() {
		t.Error("Headless() should default to false")
	}
	if cfg.SimPort() != DefaultSimPort || cfg.SimStepDelay() != DefaultSimStepDelay {
		t.Errorf("sim = %d/%v", cfg.SimPort(), cfg.SimStepDelay())
	}
	if cfg.DBPath() != filepath.Join("/tmp/iavido-test", DBFilename) {
		t.Errorf("DBPath() = %q", cfg.DBPath())
	}
	if cfg.DownloadsDir() != filepath.Join("/tmp/iavido-test", "downloads") {
		t.Errorf("DownloadsDir() = %q", cfg.DownloadsDir())
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("IAVIDO_PORT", "9100")
	t.Setenv("IAVIDO_SERVICE_URL", "http://video.local:8000/")
	t.Setenv("IAVIDO_POLL_INTERVAL", "250ms")
	t.Setenv("IAVIDO_HEADLESS", "true")
	t.Setenv("IAVIDO_SIM_STEP_DELAY", "10ms")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port() != 9100 {
		t.Errorf("Port() = %d, want 9100", cfg.Port())
	}
	if cfg.ServiceURL() != "http://video.local:8000" {
		t.Errorf("ServiceURL() = %q, trailing slash should be trimmed", cfg.ServiceURL())
	}
	if cfg.PollInterval() != 250*time.Millisecond {
		t.Errorf("PollInterval() = %v", cfg.PollInterval())
	}
	if !cfg.Headless() {
		t.Error("Headless() = false, want true")
	}
	if cfg.SimStepDelay() != 10*time.Millisecond {
		t.Errorf("SimStepDelay() = %v", cfg.SimStepDelay())
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"port not a number", "IAVIDO_PORT", "abc"},
		{"port out of range", "IAVIDO_PORT", "70000"},
		{"bad duration", "IAVIDO_POLL_INTERVAL", "soon"},
		{"zero interval", "IAVIDO_POLL_INTERVAL", "0s"},
		{"negative timeout", "IAVIDO_HTTP_TIMEOUT", "-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := FromEnv(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestConfigInterface(t *testing.T) {
	var _ Config = (*EnvConfig)(nil)
}
