package confloader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/blazar-go/internal/server/config"
)

type testConfig struct {
	Proxy struct {
		RedisAuth string `koanf:"redis_auth"`
		Port      string `koanf:"proxy_port"`
	} `koanf:"proxy"`
	Backend struct {
		RequestTimeout time.Duration `koanf:"request_timeout"`
	} `koanf:"backend"`
	Tags []string `koanf:"tags"`
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blazar.yaml")
	writeFile(t, path, content)
	return path
}

// ============================================================================
// Sources
// ============================================================================

func TestLoader_Priority(t *testing.T) {
	path := writeConfig(t, `
proxy:
  redis_auth: "from-file"
  proxy_port: "7000"
backend:
  request_timeout: 3s
`)

	tests := []struct {
		name      string
		env       map[string]string
		overrides map[string]any
		wantAuth  string
		wantPort  string
	}{
		{
			name:     "file only",
			wantAuth: "from-file",
			wantPort: "7000",
		},
		{
			name:     "env over file",
			env:      map[string]string{"BLAZAR_PROXY__REDIS_AUTH": "from-env", "BLAZAR_PROXY__PROXY_PORT": "7001"},
			wantAuth: "from-env",
			wantPort: "7001",
		},
		{
			name:      "overrides over env",
			env:       map[string]string{"BLAZAR_PROXY__PROXY_PORT": "7001"},
			overrides: map[string]any{"proxy.proxy_port": "7002"},
			wantAuth:  "from-file",
			wantPort:  "7002",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			var cfg testConfig
			l := NewLoader(WithConfigFile(path), WithOverrides(tt.overrides))
			if err := l.Load(&cfg); err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Proxy.RedisAuth != tt.wantAuth {
				t.Errorf("RedisAuth = %q, want %q", cfg.Proxy.RedisAuth, tt.wantAuth)
			}
			if cfg.Proxy.Port != tt.wantPort {
				t.Errorf("Port = %q, want %q", cfg.Proxy.Port, tt.wantPort)
			}
			if cfg.Backend.RequestTimeout != 3*time.Second {
				t.Errorf("RequestTimeout = %v, want 3s", cfg.Backend.RequestTimeout)
			}
		})
	}
}

func TestLoader_EnvPrefix(t *testing.T) {
	t.Setenv("MYPROXY_PROXY__PROXY_PORT", "9090")
	t.Setenv("BLAZAR_PROXY__PROXY_PORT", "9191")

	var cfg testConfig
	if err := NewLoader(WithEnvPrefix("MYPROXY_")).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Proxy.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Proxy.Port)
	}
}

func TestLoader_EnvKey(t *testing.T) {
	l := NewLoader()

	tests := []struct {
		env  string
		want string
	}{
		{"BLAZAR_PROXY__REDIS_AUTH", "proxy.redis_auth"},
		{"BLAZAR_BACKEND__RECONNECT_MIN_BACKOFF", "backend.reconnect_min_backoff"},
		{"BLAZAR_LOG__LEVEL", "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			if got := l.envKey(tt.env); got != tt.want {
				t.Errorf("envKey(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}

func TestLoader_KeepsDefaults(t *testing.T) {
	var cfg testConfig
	cfg.Proxy.Port = "6380"
	cfg.Backend.RequestTimeout = time.Second

	l := NewLoader(WithOverrides(map[string]any{"proxy.redis_auth": "x"}))
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Proxy.Port != "6380" || cfg.Backend.RequestTimeout != time.Second {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.Proxy.RedisAuth != "x" {
		t.Errorf("RedisAuth = %q", cfg.Proxy.RedisAuth)
	}
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		path    string
	}{
		{name: "missing file", path: "/nonexistent/blazar.yaml"},
		{name: "bad yaml", content: "proxy: [unclosed\n"},
		{name: "bad duration", content: "backend:\n  request_timeout: soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.path
			if path == "" {
				path = writeConfig(t, tt.content)
			}
			var cfg testConfig
			if err := NewLoader(WithConfigFile(path)).Load(&cfg); err == nil {
				t.Error("Load() expected error")
			}
		})
	}
}

// ============================================================================
// Strict mode
// ============================================================================

func TestLoader_Strict(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"known keys", "proxy:\n  proxy_port: \"1\"\ntags: [a, b]\n", ""},
		{"empty section", "backend:\n", ""},
		{"typo", "backend:\n  request_timout: 1s\n", `"backend.request_timout"`},
		{"unknown section", "cluster:\n  enabled: true\n", `"cluster.enabled"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)

			var cfg testConfig
			err := NewLoader(WithConfigFile(path), WithStrict()).Load(&cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Load() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestLoader_StrictIgnoresEnv(t *testing.T) {
	t.Setenv("BLAZAR_CLI_SERVER", "127.0.0.1:6380")
	path := writeConfig(t, "proxy:\n  proxy_port: \"1\"\n")

	var cfg testConfig
	if err := NewLoader(WithConfigFile(path), WithStrict()).Load(&cfg); err != nil {
		t.Errorf("Load() error = %v", err)
	}
}

// ============================================================================
// ProxyConfig
// ============================================================================

func TestLoader_ProxyConfig(t *testing.T) {
	path := writeConfig(t, `
proxy:
  proxy_ip: "0.0.0.0"
  proxy_port: 6380
  redis_auth: "s3cret"
slice:
  - master: "10.0.0.1:6379"
    password: "p1"
  - master: "10.0.0.2:6379"
backend:
  request_timeout: 250ms
log:
  level: debug
`)

	cfg := config.Default()
	if err := NewLoader(WithConfigFile(path), WithStrict()).Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Slices) != 2 {
		t.Fatalf("len(Slices) = %d, want 2", len(cfg.Slices))
	}
	if cfg.Slices[0].Master != "10.0.0.1:6379" || cfg.Slices[0].Password != "p1" {
		t.Errorf("Slices[0] = %+v", cfg.Slices[0])
	}
	if cfg.Proxy.ListenAddr() != "0.0.0.0:6380" {
		t.Errorf("ListenAddr() = %q", cfg.Proxy.ListenAddr())
	}
	if cfg.Backend.RequestTimeout != 250*time.Millisecond {
		t.Errorf("RequestTimeout = %v, want 250ms", cfg.Backend.RequestTimeout)
	}
	if cfg.Backend.QueueSize != config.DefaultQueueSize {
		t.Errorf("QueueSize = %d, want default %d", cfg.Backend.QueueSize, config.DefaultQueueSize)
	}
	if err := config.Verify(cfg); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}
