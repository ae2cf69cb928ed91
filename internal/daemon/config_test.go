package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("CODEQUEST_HOME", "/tmp/cq-home")
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8420 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8420)
	}
	if cfg.Content.Dir != filepath.Join("/tmp/cq-home", "content") {
		t.Errorf("Content.Dir = %q", cfg.Content.Dir)
	}
	if cfg.Backend.Mode != BackendLocal {
		t.Errorf("Backend.Mode = %q, want %q", cfg.Backend.Mode, BackendLocal)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("CODEQUEST_HOME", t.TempDir())
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Rewards.TaskXP != 20 {
		t.Errorf("Rewards.TaskXP = %d, want 20", cfg.Rewards.TaskXP)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[api]
port = 9000

[backend]
mode = "supabase"
url = "https://example.supabase.co"
timeout = "3s"

[rewards]
task_xp = 50

[lock]
redis_url = "redis://localhost:6379/0"
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CODEQUEST_API_KEY", "from-env")

	cfg, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if cfg.API.Port != 9000 || cfg.API.Host != "127.0.0.1" {
		t.Errorf("API = %+v", cfg.API)
	}
	if cfg.Backend.Mode != BackendSupabase || cfg.Backend.TimeoutDuration() != 3*time.Second {
		t.Errorf("Backend = %+v", cfg.Backend)
	}
	if cfg.Backend.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want env override", cfg.Backend.APIKey)
	}
	if cfg.Rewards.TaskXP != 50 || cfg.Rewards.TaskPoints != 10 {
		t.Errorf("Rewards = %+v", cfg.Rewards)
	}
	if cfg.Lock.RedisURL == "" {
		t.Error("Lock.RedisURL not loaded")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"bad toml":        "[api\nport = ",
		"unknown mode":    "[backend]\nmode = \"firebase\"\n",
		"supabase no url": "[backend]\nmode = \"supabase\"\n",
		"bad port":        "[api]\nport = 70000\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".toml")
			os.WriteFile(path, []byte(data), 0600)
			if _, err := LoadConfigFrom(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	t.Setenv("CODEQUEST_HOME", t.TempDir())
	cfg := DefaultConfig()
	cfg.API.Port = 9100
	cfg.Backend.Timeout = "2s"
	cfg.Logging.Mode = "dev"

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	got, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got != cfg {
		t.Errorf("round trip:\n got %+v\nwant %+v", got, cfg)
	}
}

func TestTimeoutDuration_Fallback(t *testing.T) {
	for _, s := range []string{"", "soon", "-1s"} {
		if got := (BackendConfig{Timeout: s}).TimeoutDuration(); got != 10*time.Second {
			t.Errorf("TimeoutDuration(%q) = %v, want 10s", s, got)
		}
	}
}
