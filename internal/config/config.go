package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/hubro-apparatus/hubro/internal/errors"
)

const (
	// ConfigName is the base name of the configuration file. The extension
	// selects the format (hubro.json, hubro.yaml, hubro.toml).
	ConfigName = "hubro"

	// EnvPrefix prefixes environment overrides, e.g. HUBRO_SERVER_PORT.
	EnvPrefix = "HUBRO"

	// DefaultPort is the default server port.
	DefaultPort = 4000

	// DefaultHost is the default server host.
	DefaultHost = "0.0.0.0"
)

// Config holds all configuration used by a Hubro application.
type Config struct {
	// Name is the application name.
	Name string `mapstructure:"name"`

	// Directories are the file system locations, relative to the project dir.
	Directories DirectoriesConfig `mapstructure:"directories"`

	// Paths are the URL paths the application is served under.
	Paths PathsConfig `mapstructure:"paths"`

	// Server contains listener settings.
	Server ServerConfig `mapstructure:"server"`

	// Logging contains log settings.
	Logging LoggingConfig `mapstructure:"logging"`

	// Compression enables gzip compression of responses.
	Compression bool `mapstructure:"compression"`

	// CORS contains cross origin settings.
	CORS CORSConfig `mapstructure:"cors"`

	// Metrics contains Prometheus settings.
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Tracing enables OpenTelemetry request spans.
	Tracing bool `mapstructure:"tracing"`

	// Sentry contains error reporting settings.
	Sentry SentryConfig `mapstructure:"sentry"`

	// Build contains bundler settings.
	Build BuildConfig `mapstructure:"build"`

	// Dev contains development server settings.
	Dev DevConfig `mapstructure:"dev"`

	// Publish contains upload settings for `hubro publish`.
	Publish PublishConfig `mapstructure:"publish"`

	development bool
	dir         string
	configPath  string
}

// DirectoriesConfig are project directories. All values must be relative.
type DirectoriesConfig struct {
	Src        string `mapstructure:"src"`
	Build      string `mapstructure:"build"`
	Components string `mapstructure:"components"`
	Adapters   string `mapstructure:"adapters"`
	Layouts    string `mapstructure:"layouts"`
	Public     string `mapstructure:"public"`
	System     string `mapstructure:"system"`
	Pages      string `mapstructure:"pages"`
	CSS        string `mapstructure:"css"`
	JS         string `mapstructure:"js"`
}

// PathsConfig are URL paths. All values must be relative.
type PathsConfig struct {
	// Base prefixes every route of the application.
	Base string `mapstructure:"base"`

	// Public is where the build directory is served in production.
	Public string `mapstructure:"public"`
}

// ServerConfig contains listener settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig contains log settings.
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Requests bool   `mapstructure:"requests"`
	Name     string `mapstructure:"name"`
}

// CORSConfig contains cross origin settings.
type CORSConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Origins []string `mapstructure:"origins"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// SentryConfig contains error reporting settings.
type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

// BuildConfig contains bundler settings.
type BuildConfig struct {
	Minify     bool `mapstructure:"minify"`
	SourceMaps bool `mapstructure:"source_maps"`
}

// DevConfig contains development server settings.
type DevConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
	Ignore   []string      `mapstructure:"ignore"`
}

// PublishConfig contains upload settings.
type PublishConfig struct {
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`
}

// Options controls how a Config is loaded.
type Options struct {
	// Dir is the project directory. Defaults to the working directory.
	Dir string

	// Development selects development mode. It can only be set at load time.
	Development bool
}

// defaults mirrors the zero configuration of a Hubro application. Viper
// only consults the environment for keys it knows about, so every key
// of Config needs an entry here, even an empty one.
var defaults = map[string]any{
	"name":                    "Hubro",
	"directories.src":         "./",
	"directories.build":       "./build",
	"directories.components":  "./components",
	"directories.adapters":    "./adapters",
	"directories.layouts":     "./layouts",
	"directories.public":      "./public",
	"directories.system":      "./system",
	"directories.pages":       "./pages",
	"directories.css":         "./css",
	"directories.js":          "./js",
	"paths.base":              "./",
	"paths.public":            "./public/",
	"server.host":             DefaultHost,
	"server.port":             DefaultPort,
	"server.shutdown_timeout": "10s",
	"logging.level":           "info",
	"logging.requests":        false,
	"logging.name":            "",
	"compression":             true,
	"cors.enabled":            true,
	"cors.origins":            []string{"*"},
	"metrics.enabled":         false,
	"metrics.path":            "_/metrics",
	"tracing":                 false,
	"sentry.dsn":              "",
	"sentry.environment":      "",
	"build.minify":            true,
	"build.source_maps":       false,
	"dev.debounce":            "100ms",
	"dev.ignore":              []string{},
	"publish.bucket":          "",
	"publish.prefix":          "",
	"publish.region":          "us-east-1",
	"publish.endpoint":        "",
	"publish.path_style":      false,
}

// New creates a Config with default values rooted at dir.
func New(dir string, development bool) *Config {
	v := newViper()
	cfg := &Config{}
	// Defaults always decode.
	_ = v.Unmarshal(cfg)
	cfg.dir = dir
	cfg.development = development
	cfg.normalize()
	return cfg
}

// Load reads configuration from the project directory. A missing config
// file is not an error. A .env file in the directory is loaded into the
// environment first, so HUBRO_* overrides can live there.
func Load(opts Options) (*Config, error) {
	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return nil, errors.New("E110").WithPath(filepath.Join(dir, ".env")).Wrap(err)
	}

	v := newViper()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName(ConfigName)
	v.AddConfigPath(dir)

	var configPath string
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, errors.New("E110").WithPath(v.ConfigFileUsed()).Wrap(err)
		}
	} else {
		configPath = v.ConfigFileUsed()
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.New("E110").WithPath(configPath).Wrap(err)
	}
	cfg.dir = dir
	cfg.configPath = configPath
	cfg.development = opts.Development
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

// normalize pads URL paths with a trailing slash so relative resolving
// behaves like directory resolving.
func (c *Config) normalize() {
	c.Paths.Base = padSlash(c.Paths.Base)
	c.Paths.Public = padSlash(c.Paths.Public)
	c.Metrics.Path = strings.TrimLeft(c.Metrics.Path, "/")
	c.Logging.Level = strings.ToLower(c.Logging.Level)
}

func padSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

// Validate checks that the configuration can be served.
func (c *Config) Validate() error {
	relative := []struct {
		key   string
		value string
	}{
		{"directories.src", c.Directories.Src},
		{"directories.build", c.Directories.Build},
		{"directories.components", c.Directories.Components},
		{"directories.adapters", c.Directories.Adapters},
		{"directories.layouts", c.Directories.Layouts},
		{"directories.public", c.Directories.Public},
		{"directories.system", c.Directories.System},
		{"directories.pages", c.Directories.Pages},
		{"directories.css", c.Directories.CSS},
		{"directories.js", c.Directories.JS},
		{"paths.base", c.Paths.Base},
		{"paths.public", c.Paths.Public},
	}
	for _, r := range relative {
		if filepath.IsAbs(r.value) || path.IsAbs(r.value) {
			return errors.New("E102").
				WithDetailf("Value for %s is not relative. Must be relative path.", r.key).
				WithPath(c.configPath)
		}
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E103").
			WithDetail("server.port must be between 0 and 65535").
			WithPath(c.configPath)
	}

	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return errors.New("E103").
			WithDetailf("logging.level %q is not one of trace, debug, info, warn, error, fatal", c.Logging.Level).
			WithPath(c.configPath)
	}
	return nil
}

// Development reports whether the application runs in development mode.
func (c *Config) Development() bool {
	return c.development
}

// Dir returns the absolute project directory.
func (c *Config) Dir() string {
	return c.dir
}

// Path returns the config file the values were read from, if any.
func (c *Config) Path() string {
	return c.configPath
}

// LogName returns the logger name, defaulting to the application name.
func (c *Config) LogName() string {
	if c.Logging.Name != "" {
		return c.Logging.Name
	}
	return c.Name
}

// SrcDir returns the absolute source directory.
func (c *Config) SrcDir() string {
	return filepath.Join(c.dir, c.Directories.Src)
}

// PagesDir returns the absolute pages directory.
func (c *Config) PagesDir() string {
	return filepath.Join(c.SrcDir(), c.Directories.Pages)
}

// SystemDir returns the absolute system directory.
func (c *Config) SystemDir() string {
	return filepath.Join(c.SrcDir(), c.Directories.System)
}

// PublicDir returns the absolute public directory.
func (c *Config) PublicDir() string {
	return filepath.Join(c.SrcDir(), c.Directories.Public)
}

// ComponentsDir returns the absolute components directory.
func (c *Config) ComponentsDir() string {
	return filepath.Join(c.SrcDir(), c.Directories.Components)
}

// LayoutsDir returns the absolute layouts directory.
func (c *Config) LayoutsDir() string {
	return filepath.Join(c.SrcDir(), c.Directories.Layouts)
}

// AdaptersDir returns the absolute adapters directory.
func (c *Config) AdaptersDir() string {
	return filepath.Join(c.SrcDir(), c.Directories.Adapters)
}

// BuildDir returns the absolute build directory.
func (c *Config) BuildDir() string {
	return filepath.Join(c.SrcDir(), c.Directories.Build)
}

// JSDir returns the absolute directory bundles are written to.
func (c *Config) JSDir() string {
	return filepath.Join(c.BuildDir(), c.Directories.JS)
}

// CSSDir returns the absolute directory stylesheets are written to.
func (c *Config) CSSDir() string {
	return filepath.Join(c.BuildDir(), c.Directories.CSS)
}

// Address returns the listen address.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// URL returns the base URL of the running server.
func (c *Config) URL() string {
	return fmt.Sprintf("http://%s:%d%s", c.Server.Host, c.Server.Port, c.URLPathBase())
}

// URLPathBase returns the absolute URL path every route is prefixed with.
func (c *Config) URLPathBase() string {
	return joinURL(c.Paths.Base)
}

// URLPathPublic returns the URL path the build directory is served under.
func (c *Config) URLPathPublic() string {
	return joinURL(c.Paths.Base, c.Paths.Public)
}

// URLPathMetrics returns the URL path of the metrics endpoint.
func (c *Config) URLPathMetrics() string {
	return strings.TrimSuffix(joinURL(c.Paths.Base, c.Metrics.Path), "/")
}

// URLPathToJs returns the URL of a javascript asset. In development it
// points at the on-demand asset routes under /_/, in production at the
// static public path.
func (c *Config) URLPathToJs(appendix string) string {
	env := c.Paths.Public
	if c.development {
		env = "_"
	}
	p := path.Join("/", c.Paths.Base, env, c.Directories.JS, appendix)
	if appendix == "" || strings.HasSuffix(appendix, "/") {
		p += "/"
	}
	return p
}

// URLPathDev returns a path under the development asset prefix.
func (c *Config) URLPathDev(appendix string) string {
	return path.Join("/", c.Paths.Base, "_", appendix)
}

func joinURL(parts ...string) string {
	p := path.Join(append([]string{"/"}, parts...)...)
	if p != "/" {
		p += "/"
	}
	return p
}
