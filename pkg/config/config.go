// Package config loads the workspacectl configuration file.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kickstorm/workspacectl/pkg/api"
)

// Config holds the complete client configuration.
type Config struct {
	Workspace WorkspaceConfig `yaml:"workspace"`
	Upload    UploadConfig    `yaml:"upload"`
	Poll      PollConfig      `yaml:"poll"`
	Preview   PreviewConfig   `yaml:"preview"`
	History   HistoryConfig   `yaml:"history"`
}

// WorkspaceConfig identifies the remote workspace and how to reach it.
type WorkspaceConfig struct {
	// BaseURL is the API root, e.g. https://host/api/projects/42.
	BaseURL string `yaml:"base_url"`

	// CSRFToken is the page-level trust anchor sent with every
	// mutating request. Usually supplied via ${WORKSPACE_CSRF_TOKEN}.
	CSRFToken string `yaml:"csrf_token"`

	// Endpoints overrides individual endpoint URLs. Unset fields are
	// derived from BaseURL.
	Endpoints api.Endpoints `yaml:"endpoints"`

	// Timeout bounds any single request.
	Timeout time.Duration `yaml:"timeout"`
}

// UploadConfig configures upload behavior and limits.
type UploadConfig struct {
	// ZipLimitMB and FileLimitMB mirror the server-side ceilings so
	// size-limit errors can name the configured maximum. Zero means
	// unknown.
	ZipLimitMB  int `yaml:"zip_limit_mb"`
	FileLimitMB int `yaml:"file_limit_mb"`

	// ProgressGrace is how long a completed progress bar stays visible
	// before it is hidden.
	ProgressGrace time.Duration `yaml:"progress_grace"`
}

// PollConfig configures the synchronization poller.
type PollConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// PreviewConfig configures the file preview pipeline.
type PreviewConfig struct {
	// MaxBytes is the hard ceiling above which content is never
	// fetched and only a download link is offered.
	MaxBytes int64 `yaml:"max_bytes"`

	// ModelViewer enables the 3D model rendering branch.
	ModelViewer bool `yaml:"model_viewer"`
}

// HistoryConfig configures the local history cache.
type HistoryConfig struct {
	// Path is the SQLite database location. Empty disables the cache.
	Path string `yaml:"path"`
}

// Defaults applied by Load.
const (
	DefaultTimeout       = 60 * time.Second
	DefaultProgressGrace = 500 * time.Millisecond
	DefaultPollInterval  = 2 * time.Second
	DefaultPollAttempts  = 60
	DefaultPreviewBytes  = 2 * 1024 * 1024
)

// Load reads configuration from a file. The path comes from command
// line arguments, controlled by the operator.
func Load(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// ApplyDefaults fills unset fields, deriving endpoint URLs from the
// base URL. Load calls it; programmatically built configurations
// should too.
func (c *Config) ApplyDefaults() {
	applyDefaults(c)
}

// applyDefaults fills unset fields, deriving endpoint URLs from the
// base URL.
func applyDefaults(cfg *Config) {
	if cfg.Workspace.Timeout == 0 {
		cfg.Workspace.Timeout = DefaultTimeout
	}
	if cfg.Upload.ProgressGrace == 0 {
		cfg.Upload.ProgressGrace = DefaultProgressGrace
	}
	if cfg.Poll.Interval == 0 {
		cfg.Poll.Interval = DefaultPollInterval
	}
	if cfg.Poll.MaxAttempts == 0 {
		cfg.Poll.MaxAttempts = DefaultPollAttempts
	}
	if cfg.Preview.MaxBytes == 0 {
		cfg.Preview.MaxBytes = DefaultPreviewBytes
	}

	base := strings.TrimSuffix(cfg.Workspace.BaseURL, "/")
	if base == "" {
		return
	}
	endpoints := &cfg.Workspace.Endpoints
	if endpoints.UploadZip == "" {
		endpoints.UploadZip = base + "/upload-zip"
	}
	if endpoints.UploadFile == "" {
		endpoints.UploadFile = base + "/files"
	}
	if endpoints.Finalize == "" {
		endpoints.Finalize = base + "/finalize-upload"
	}
	if endpoints.CancelTemplate == "" {
		endpoints.CancelTemplate = base + "/sessions/{session_id}"
	}
	if endpoints.Status == "" {
		endpoints.Status = base + "/sync-status"
	}
	if endpoints.Tree == "" {
		endpoints.Tree = base + "/files/tree"
	}
	if endpoints.Sign == "" {
		endpoints.Sign = base + "/files/sign"
	}
	if endpoints.DownloadBase == "" {
		endpoints.DownloadBase = base + "/files"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Workspace.BaseURL == "" && c.Workspace.Endpoints.Status == "" {
		errs = append(errs, "workspace.base_url or workspace.endpoints.status is required")
	}
	if c.Poll.Interval < 0 {
		errs = append(errs, "poll.interval must not be negative")
	}
	if c.Poll.MaxAttempts < 0 {
		errs = append(errs, "poll.max_attempts must not be negative")
	}
	if c.Preview.MaxBytes < 0 {
		errs = append(errs, "preview.max_bytes must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
