package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	apperr "github.com/matzehuels/stackflow/pkg/errors"
	"github.com/matzehuels/stackflow/pkg/layout"
	"github.com/matzehuels/stackflow/pkg/pipeline"
)

func discardLogger() *log.Logger { return newLogger(io.Discard, log.InfoLevel) }

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", `
[layout]
width = 1280
height = 720
direction = "LR"
max_passes = 3

[cache]
dir = "/tmp/flow-cache"

[server]
addr = ":9090"
redis_url = "redis://localhost:6379/0"
rate_limit = 2.5
`)

	cfg, err := loadConfig(path, discardLogger())
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.Layout.Width != 1280 || cfg.Layout.Height != 720 {
		t.Errorf("layout canvas = %vx%v, want 1280x720", cfg.Layout.Width, cfg.Layout.Height)
	}
	if cfg.Layout.Direction != "LR" || cfg.Layout.MaxPasses == nil || *cfg.Layout.MaxPasses != 3 {
		t.Errorf("layout = %+v", cfg.Layout)
	}
	if cfg.Cache.Dir != "/tmp/flow-cache" {
		t.Errorf("cache dir = %q", cfg.Cache.Dir)
	}
	if cfg.Server.Addr != ":9090" || cfg.Server.RateLimit != 2.5 {
		t.Errorf("server = %+v", cfg.Server)
	}
}

func TestLoadConfig_DefaultMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := loadConfig("", discardLogger())
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg != (Config{}) {
		t.Errorf("loadConfig() = %+v, want zero config", cfg)
	}
}

func TestLoadConfig_DefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	if err := os.MkdirAll(filepath.Join(home, appName), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(home, appName), configFile, "[cache]\ndisabled = true\n")

	cfg, err := loadConfig("", discardLogger())
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if !cfg.Cache.Disabled {
		t.Error("default config file was not read")
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.toml", "[layout\nwidth = ")
	wrongType := writeFile(t, dir, "type.toml", "[layout]\nwidth = \"wide\"\n")

	tests := []struct {
		name string
		path string
		code apperr.Code
	}{
		{"explicit missing", filepath.Join(dir, "missing.toml"), apperr.ErrCodeFileNotFound},
		{"syntax", bad, apperr.ErrCodeInvalidConfig},
		{"type", wrongType, apperr.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(tt.path, discardLogger())
			if !apperr.Is(err, tt.code) {
				t.Errorf("loadConfig() = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestLoadConfig_UnknownKeys(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", "[layout]\nwidht = 10\n")

	var buf bytes.Buffer
	if _, err := loadConfig(path, newLogger(&buf, log.InfoLevel)); err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if !strings.Contains(buf.String(), "layout.widht") {
		t.Errorf("unknown key not reported: %q", buf.String())
	}
}

func TestApplyLayoutConfig(t *testing.T) {
	two := 2
	cfg := LayoutConfig{Width: 1280, Height: 720, Direction: "LR", MaxPasses: &two}

	t.Run("fills unset flags", func(t *testing.T) {
		var opts pipeline.Options
		cmd := New(io.Discard, LogInfo).layoutCommand()
		applyLayoutConfig(cmd, cfg, &opts)
		if opts.Width != 1280 || opts.Height != 720 || opts.Direction != "LR" || opts.MaxPasses != 2 {
			t.Errorf("opts = %+v", opts)
		}
	})

	t.Run("flags win", func(t *testing.T) {
		var opts pipeline.Options
		cmd := New(io.Discard, LogInfo).layoutCommand()
		if err := cmd.Flags().Set("width", "640"); err != nil {
			t.Fatal(err)
		}
		opts.Width = 640
		applyLayoutConfig(cmd, cfg, &opts)
		if opts.Width != 640 {
			t.Errorf("width = %v, want flag value 640", opts.Width)
		}
		if opts.Height != 720 {
			t.Errorf("height = %v, want config value 720", opts.Height)
		}
	})
}

func TestApplyLayoutConfig_MaxPasses(t *testing.T) {
	zero, three := 0, 3
	tests := []struct {
		name string
		flag string // empty leaves the flag unset
		cfg  *int
		want int
	}{
		{"flag default", "", nil, pipeline.DefaultMaxPasses},
		{"flag zero disables", "0", nil, -1},
		{"flag positive", "5", &three, 5},
		{"config zero disables", "", &zero, -1},
		{"config positive", "", &three, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := New(io.Discard, LogInfo).layoutCommand()
			opts := pipeline.Options{MaxPasses: pipeline.DefaultMaxPasses}
			if tt.flag != "" {
				if err := cmd.Flags().Set("max-passes", tt.flag); err != nil {
					t.Fatal(err)
				}
				opts.MaxPasses, _ = cmd.Flags().GetInt("max-passes")
			}
			applyLayoutConfig(cmd, LayoutConfig{MaxPasses: tt.cfg}, &opts)
			if opts.MaxPasses != tt.want {
				t.Errorf("MaxPasses = %d, want %d", opts.MaxPasses, tt.want)
			}
			if err := opts.ValidateForLayout(); err != nil {
				t.Fatalf("ValidateForLayout() = %v", err)
			}
			if tt.want < 0 && opts.LayoutOptions().MaxPasses != 0 {
				t.Errorf("engine MaxPasses = %d, want 0", opts.LayoutOptions().MaxPasses)
			}
		})
	}
}

func TestConfigFlag(t *testing.T) {
	isolate(t)
	path := writeFile(t, t.TempDir(), "flow.toml", "[layout]\nwidth = 800\nheight = 600\n")

	stdout, _, err := runCLI(t, scenario, "layout", "-", "--config", path)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	l, err := layout.Unmarshal([]byte(stdout))
	if err != nil {
		t.Fatalf("decode layout: %v", err)
	}
	if l.Width != 800 || l.Height != 600 {
		t.Errorf("canvas = %vx%v, want 800x600 from config", l.Width, l.Height)
	}

	stdout, _, err = runCLI(t, scenario, "layout", "-", "--config", path, "--width", "1000")
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if l, err = layout.Unmarshal([]byte(stdout)); err != nil {
		t.Fatalf("decode layout: %v", err)
	}
	if l.Width != 1000 || l.Height != 600 {
		t.Errorf("canvas = %vx%v, want 1000x600", l.Width, l.Height)
	}
}

func TestConfigFlag_Missing(t *testing.T) {
	isolate(t)

	_, _, err := runCLI(t, scenario, "layout", "-", "--config", filepath.Join(t.TempDir(), "nope.toml"))
	if !apperr.Is(err, apperr.ErrCodeFileNotFound) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
}
