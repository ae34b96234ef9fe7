package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/efebarandurmaz/framebind/internal/assembler"
)

// Config holds all application configuration.
type Config struct {
	Libraries []LibraryConfig `mapstructure:"libraries"`
	Output    OutputConfig    `mapstructure:"output"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Graph     GraphConfig     `mapstructure:"graph"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Secrets   SecretsConfig   `mapstructure:"secrets"`
}

// LibraryConfig is the per-framework metadata. Libraries are a list rather
// than a map so framework names keep their case.
type LibraryConfig struct {
	Name     string `mapstructure:"name"`
	LinkName string `mapstructure:"link_name"`
	Linkage  string `mapstructure:"linkage"`
	// CfgAppleLink is the older boolean spelling of the linkage style:
	// true selects platform-conditional linkage, false unconditional.
	CfgAppleLink *bool  `mapstructure:"cfg_apple_link"`
	Input        string `mapstructure:"input"`
	Format       string `mapstructure:"format"`
	Output       string `mapstructure:"output"`
}

type OutputConfig struct {
	Dir     string `mapstructure:"dir"`
	Workers int    `mapstructure:"workers"`
	Prune   bool   `mapstructure:"prune"`
	Target  string `mapstructure:"target"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	Environment  string  `mapstructure:"environment"`
}

type GraphConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// AuditConfig enables the JSON-lines audit log of generation runs.
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// SecretsConfig names where graph credentials come from when they are not
// set inline.
type SecretsConfig struct {
	Provider string `mapstructure:"provider"`
	Path     string `mapstructure:"path"`
}

type WorkerConfig struct {
	HealthAddr      string        `mapstructure:"health_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Library is a LibraryConfig with defaults applied.
type Library struct {
	Name      string
	LinkName  string
	Linkage   assembler.LinkageStyle
	Input     string
	Format    string
	OutputDir string
}

// Default returns the configuration used when no config file is available.
func Default() *Config {
	return &Config{
		Output: OutputConfig{Dir: "generated", Workers: runtime.NumCPU(), Target: "rust"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Tracing: TracingConfig{
			SampleRate:  1.0,
			Environment: "development",
		},
		Temporal: TemporalConfig{Host: "localhost:7233", Namespace: "default", TaskQueue: "framebind"},
		Worker:   WorkerConfig{HealthAddr: ":8081", ShutdownTimeout: 30 * time.Second},
		Secrets:  SecretsConfig{Provider: "env"},
	}
}

func (l LibraryConfig) linkage() (assembler.LinkageStyle, error) {
	if l.Linkage == "" && l.CfgAppleLink != nil {
		if *l.CfgAppleLink {
			return assembler.PlatformConditional, nil
		}
		return assembler.Unconditional, nil
	}
	return assembler.ParseLinkageStyle(l.Linkage)
}

// Library resolves the named library. The link name defaults to the library
// name, the linkage to platform-conditional, and the output directory to
// <output.dir>/<name>.
func (c *Config) Library(name string) (Library, error) {
	var lc *LibraryConfig
	for i := range c.Libraries {
		if c.Libraries[i].Name == name {
			lc = &c.Libraries[i]
			break
		}
	}
	if lc == nil {
		for i := range c.Libraries {
			if strings.EqualFold(c.Libraries[i].Name, name) {
				lc = &c.Libraries[i]
				break
			}
		}
	}
	if lc == nil {
		return Library{}, fmt.Errorf("library %q is not configured", name)
	}
	if lc.Output == "" && !isPathSegment(lc.Name) {
		return Library{}, fmt.Errorf("library %q: name cannot be used as a directory below output.dir; set output", lc.Name)
	}

	linkage, err := lc.linkage()
	if err != nil {
		slog.Warn("falling back to platform-conditional linkage", "library", lc.Name, "error", err)
	}
	lib := Library{
		Name:      lc.Name,
		LinkName:  lc.LinkName,
		Linkage:   linkage,
		Input:     lc.Input,
		Format:    lc.Format,
		OutputDir: lc.Output,
	}
	if lib.LinkName == "" {
		lib.LinkName = lc.Name
	}
	if lib.OutputDir == "" {
		lib.OutputDir = filepath.Join(c.Output.Dir, lc.Name)
	}
	return lib, nil
}

// isPathSegment reports whether name is a single, non-special path element.
func isPathSegment(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

// LibraryNames returns the configured library names in file order.
func (c *Config) LibraryNames() []string {
	names := make([]string, 0, len(c.Libraries))
	for _, l := range c.Libraries {
		names = append(names, l.Name)
	}
	return names
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	seen := make(map[string]bool, len(c.Libraries))
	for i, l := range c.Libraries {
		if l.Name == "" {
			warnings = append(warnings, fmt.Sprintf("library #%d has no name", i))
			continue
		}
		if seen[l.Name] {
			warnings = append(warnings, fmt.Sprintf("library '%s' is configured more than once", l.Name))
		}
		seen[l.Name] = true

		if l.Output == "" && !isPathSegment(l.Name) {
			warnings = append(warnings, fmt.Sprintf("library '%s': name is not a plain directory name and no output is set", l.Name))
		}

		if _, err := assembler.ParseLinkageStyle(l.Linkage); err != nil {
			warnings = append(warnings, fmt.Sprintf("library '%s': %v", l.Name, err))
		}
		if l.Linkage != "" && l.CfgAppleLink != nil {
			warnings = append(warnings, fmt.Sprintf("library '%s' sets both linkage and cfg_apple_link; linkage wins", l.Name))
		}
		if l.Input == "" {
			warnings = append(warnings, fmt.Sprintf("library '%s' has no input dump", l.Name))
		}
	}

	if c.Output.Workers < 0 {
		warnings = append(warnings, fmt.Sprintf("output workers %d is negative", c.Output.Workers))
	}

	if c.Worker.ShutdownTimeout < 0 {
		warnings = append(warnings, fmt.Sprintf("worker shutdown_timeout %s is negative", c.Worker.ShutdownTimeout))
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		warnings = append(warnings, fmt.Sprintf("tracing sample_rate %.2f is outside range [0.0, 1.0]", c.Tracing.SampleRate))
	}

	return warnings
}

// Load reads configuration from file and environment.
func Load(path string) (*Config, error) {
	def := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("FRAMEBIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("output.dir", def.Output.Dir)
	v.SetDefault("output.workers", def.Output.Workers)
	v.SetDefault("output.target", def.Output.Target)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("tracing.sample_rate", def.Tracing.SampleRate)
	v.SetDefault("tracing.environment", def.Tracing.Environment)
	v.SetDefault("temporal.host", def.Temporal.Host)
	v.SetDefault("temporal.namespace", def.Temporal.Namespace)
	v.SetDefault("temporal.task_queue", def.Temporal.TaskQueue)
	v.SetDefault("worker.health_addr", def.Worker.HealthAddr)
	v.SetDefault("worker.shutdown_timeout", def.Worker.ShutdownTimeout)
	v.SetDefault("secrets.provider", def.Secrets.Provider)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	for _, warning := range cfg.Validate() {
		slog.Warn("config", "warning", warning)
	}

	return &cfg, nil
}
