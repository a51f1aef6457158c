package cli

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	apperr "github.com/matzehuels/stackflow/pkg/errors"
	"github.com/matzehuels/stackflow/pkg/pipeline"
)

// configFile is the file name looked up in the config directory.
const configFile = "config.toml"

// Config is the optional TOML configuration file. Command-line flags
// override every value set here.
//
//	[layout]
//	width = 1280
//	height = 720
//	direction = "LR"
//
//	[cache]
//	disabled = false
//
//	[server]
//	addr = ":9090"
//	redis_url = "redis://localhost:6379/0"
type Config struct {
	Layout LayoutConfig `toml:"layout"`
	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`
}

// LayoutConfig holds default layout settings.
type LayoutConfig struct {
	Width       float64 `toml:"width"`
	Height      float64 `toml:"height"`
	NodeSpacing float64 `toml:"node_spacing"`
	RankSpacing float64 `toml:"rank_spacing"`
	Margin      float64 `toml:"margin"`
	MaxPasses   *int    `toml:"max_passes"` // 0 disables crossing minimization
	Direction   string  `toml:"direction"`
}

// CacheConfig holds local cache settings.
type CacheConfig struct {
	Dir      string `toml:"dir"`
	Disabled bool   `toml:"disabled"`
}

// ServerConfig holds settings for the serve command.
type ServerConfig struct {
	Addr          string  `toml:"addr"`
	RedisURL      string  `toml:"redis_url"`
	MongoURI      string  `toml:"mongo_uri"`
	MongoDatabase string  `toml:"mongo_database"`
	StoreDir      string  `toml:"store_dir"`
	RateLimit     float64 `toml:"rate_limit"`
	Burst         int     `toml:"burst"`
	MaxBodyBytes  int64   `toml:"max_body_bytes"`
}

// loadConfig reads the config file at path. With an empty path the default
// location is tried and a missing file yields the zero Config.
func loadConfig(path string, logger *log.Logger) (Config, error) {
	var cfg Config
	explicit := path != ""
	if !explicit {
		dir, err := configDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(dir, configFile)
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if explicit {
				return cfg, apperr.Wrap(apperr.ErrCodeFileNotFound, err, "config file %s", path)
			}
			return Config{}, nil
		}
		return cfg, apperr.Wrap(apperr.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	for _, key := range md.Undecoded() {
		logger.Warn("unknown config key", "key", key.String(), "file", path)
	}
	logger.Debug("loaded config", "file", path)
	return cfg, nil
}

// applyLayoutConfig fills layout options from the config file wherever the
// matching flag was not set on the command line.
func applyLayoutConfig(cmd *cobra.Command, cfg LayoutConfig, opts *pipeline.Options) {
	unset := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f == nil || !f.Changed
	}
	if unset("width") && cfg.Width != 0 {
		opts.Width = cfg.Width
	}
	if unset("height") && cfg.Height != 0 {
		opts.Height = cfg.Height
	}
	if unset("node-spacing") && cfg.NodeSpacing != 0 {
		opts.NodeSpacing = cfg.NodeSpacing
	}
	if unset("rank-spacing") && cfg.RankSpacing != 0 {
		opts.RankSpacing = cfg.RankSpacing
	}
	if unset("margin") && cfg.Margin != 0 {
		opts.Margin = cfg.Margin
	}
	switch {
	case !unset("max-passes"):
		opts.MaxPasses = passes(opts.MaxPasses)
	case cfg.MaxPasses != nil:
		opts.MaxPasses = passes(*cfg.MaxPasses)
	}
	if unset("direction") && cfg.Direction != "" {
		opts.Direction = cfg.Direction
	}
}

// passes converts a user-facing pass count, where 0 turns the crossing
// minimization off as it does in the engine, into [pipeline.Options]
// form, where zero selects the default and negative values disable it.
func passes(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

// readSource reads a command's input file, or stdin for "-".
func readSource(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.Wrap(apperr.ErrCodeFileNotFound, err, "input %s", path)
		}
		return nil, err
	}
	return data, nil
}
