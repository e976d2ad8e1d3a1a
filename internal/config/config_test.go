package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
auth:
  enabled: true
  api_key: secret
crawler:
  user_agent: lead-agent
  max_pages_default: 40
  max_depth_default: 3
  timeout_seconds: 20
  inter_request_delay_ms: 250
  respect_robots: false
headless:
  enabled: true
  nav_timeout_seconds: 30
scheduler:
  workers: 6
  job_freshness_hours: 12
export:
  dir: /tmp/exports
  gcs_bucket: bucket
db:
  dsn: postgres://localhost/leadharvest
pubsub:
  project_id: proj
  topic_name: actions
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Auth.Enabled || cfg.Auth.APIKey != "secret" {
		t.Fatalf("expected auth enabled with secret key")
	}
	if cfg.Crawler.MaxPagesDefault != 40 || cfg.Crawler.RespectRobots {
		t.Fatalf("expected crawler overrides to apply: %+v", cfg.Crawler)
	}
	if cfg.Scheduler.Workers != 6 {
		t.Fatalf("expected 6 workers, got %d", cfg.Scheduler.Workers)
	}
	if got := cfg.CrawlTimeout(); got != 20*time.Second {
		t.Fatalf("expected crawl timeout 20s, got %v", got)
	}
	if got := cfg.InterRequestDelay(); got != 250*time.Millisecond {
		t.Fatalf("expected delay 250ms, got %v", got)
	}
	if got := cfg.JobFreshness(); got != 12*time.Hour {
		t.Fatalf("expected freshness 12h, got %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Crawler.MaxPagesDefault != 15 || cfg.Crawler.MaxDepthDefault != 2 {
		t.Fatalf("expected default crawl budgets: %+v", cfg.Crawler)
	}
	if cfg.Export.Dir != "exports" {
		t.Fatalf("expected default export dir, got %q", cfg.Export.Dir)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:    ServerConfig{Port: 8080},
		Crawler:   CrawlerConfig{TimeoutSeconds: 10, MaxPagesDefault: 15},
		Scheduler: SchedulerConfig{Workers: 4},
		Export:    ExportConfig{Dir: "exports"},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "invalid port",
			cfg: func() Config {
				c := base
				c.Server.Port = 0
				return c
			}(),
			want: "server.port",
		},
		{
			name: "invalid timeout",
			cfg: func() Config {
				c := base
				c.Crawler.TimeoutSeconds = 0
				return c
			}(),
			want: "crawler.timeout_seconds",
		},
		{
			name: "invalid workers",
			cfg: func() Config {
				c := base
				c.Scheduler.Workers = 0
				return c
			}(),
			want: "scheduler.workers",
		},
		{
			name: "auth missing api key",
			cfg: func() Config {
				c := base
				c.Auth.Enabled = true
				return c
			}(),
			want: "auth.api_key",
		},
		{
			name: "no export destination",
			cfg: func() Config {
				c := base
				c.Export = ExportConfig{}
				return c
			}(),
			want: "export.dir",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
