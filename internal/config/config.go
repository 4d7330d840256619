// Package config loads the mudra service configuration from YAML with
// MUDRA_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/session"
)

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

type LogConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"` // text or json
	ReportCaller bool   `yaml:"report_caller"`
}

type StoreConfig struct {
	DataDir string `yaml:"data_dir"`
	Path    string `yaml:"path"` // relative paths resolve under DataDir
}

type DetectionConfig struct {
	CameraID    int  `yaml:"camera_id"`
	TickRate    int  `yaml:"tick_rate"` // frames classified per second
	FrameWidth  int  `yaml:"frame_width"`
	FrameHeight int  `yaml:"frame_height"`
	MirrorX     bool `yaml:"mirror_x"`

	// MotionThreshold is the share of changed pixels, in percent, below
	// which a camera frame reuses the previous detection. Zero disables it.
	MotionThreshold float64         `yaml:"motion_threshold"`
	Detector        detector.Config `yaml:"detector"`
}

type ClassifierConfig struct {
	Thresholds gesture.Thresholds `yaml:"thresholds"`
	// Templates enables trained letter templates as a secondary classifier.
	Templates             bool    `yaml:"templates"`
	TemplateMinConfidence float64 `yaml:"template_min_confidence"`
}

type AutocorrectConfig struct {
	Enabled        bool   `yaml:"enabled"`
	DictionaryPath string `yaml:"dictionary_path"` // empty uses the built-in dictionary
}

type PluginConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"`
	Timeout time.Duration `yaml:"timeout"`
}

type BusConfig struct {
	Enabled        bool          `yaml:"enabled"`
	URL            string        `yaml:"url"`
	SubjectPrefix  string        `yaml:"subject_prefix"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Config is the root configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Store       StoreConfig       `yaml:"store"`
	Detection   DetectionConfig   `yaml:"detection"`
	Classifier  ClassifierConfig  `yaml:"classifier"`
	Session     session.Config    `yaml:"session"`
	Autocorrect AutocorrectConfig `yaml:"autocorrect"`
	Plugins     PluginConfig      `yaml:"plugins"`
	Bus         BusConfig         `yaml:"bus"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Tray        TrayConfig        `yaml:"tray"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Store: StoreConfig{
			DataDir: "~/.mudra",
			Path:    "mudra.db",
		},
		Detection: DetectionConfig{
			TickRate:        2,
			FrameWidth:      detector.DefaultFrameWidth,
			FrameHeight:     detector.DefaultFrameHeight,
			MotionThreshold: 0.5,
			Detector: detector.Config{
				MaxHands:        1,
				MinConfidence:   0.5,
				MinTrackingConf: 0.5,
			},
		},
		Classifier: ClassifierConfig{
			Thresholds:            gesture.DefaultThresholds(),
			Templates:             true,
			TemplateMinConfidence: 0.6,
		},
		Session: session.DefaultConfig(),
		Autocorrect: AutocorrectConfig{
			Enabled: true,
		},
		Plugins: PluginConfig{
			Enabled: true,
			Dir:     "~/.mudra/plugins",
			Timeout: 5 * time.Second,
		},
		Bus: BusConfig{
			URL:            "nats://localhost:4222",
			SubjectPrefix:  "mudra",
			ConnectTimeout: 2 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tray: TrayConfig{
			Enabled: false,
		},
	}
}

// Load reads the file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return finish(cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config file not found: %w", err)
		}
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return LoadFromReader(bytes.NewReader(data))
}

// LoadFromReader decodes YAML from r over the defaults. Unknown keys are
// rejected.
func LoadFromReader(r io.Reader) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	return finish(cfg)
}

func finish(cfg Config) (Config, error) {
	applyEnvOverrides(&cfg)
	cfg.Store.DataDir = ExpandHome(cfg.Store.DataDir)
	cfg.Plugins.Dir = ExpandHome(cfg.Plugins.Dir)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DBPath returns the database file path.
func (c Config) DBPath() string {
	if c.Store.Path == ":memory:" || filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(c.Store.DataDir, c.Store.Path)
}

// TickInterval returns the detection loop period.
func (c Config) TickInterval() time.Duration {
	if c.Detection.TickRate <= 0 {
		return 500 * time.Millisecond
	}
	return time.Second / time.Duration(c.Detection.TickRate)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path must not be empty"))
	}
	if c.Detection.TickRate < 1 || c.Detection.TickRate > 60 {
		errs = append(errs, fmt.Errorf("detection.tick_rate %d must be between 1 and 60", c.Detection.TickRate))
	}
	if c.Detection.FrameWidth <= 0 || c.Detection.FrameHeight <= 0 {
		errs = append(errs, errors.New("detection frame size must be positive"))
	}
	if c.Detection.MotionThreshold < 0 || c.Detection.MotionThreshold > 100 {
		errs = append(errs, fmt.Errorf("detection.motion_threshold %.2f must be within [0,100]", c.Detection.MotionThreshold))
	}
	if d := c.Detection.Detector; d.MinConfidence < 0 || d.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("detection.detector.min_confidence %.2f must be within [0,1]", d.MinConfidence))
	}
	if c.Classifier.TemplateMinConfidence < 0 || c.Classifier.TemplateMinConfidence > 1 {
		errs = append(errs, fmt.Errorf("classifier.template_min_confidence %.2f must be within [0,1]", c.Classifier.TemplateMinConfidence))
	}
	if c.Session.Smoother.MinFrames < 1 {
		errs = append(errs, errors.New("session.smoother.min_frames must be at least 1"))
	}
	if c.Session.Smoother.Decay < 0 {
		errs = append(errs, errors.New("session.smoother.decay must not be negative"))
	}
	if c.Session.Assembler.DupWindow < 0 || c.Session.Assembler.HoldTime < 0 {
		errs = append(errs, errors.New("session.assembler windows must not be negative"))
	}
	if c.Bus.Enabled && c.Bus.URL == "" {
		errs = append(errs, errors.New("bus.url is required when the bus is enabled"))
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics.path %q must start with /", c.Metrics.Path))
	}

	return errors.Join(errs...)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Server.Addr, "MUDRA_SERVER_ADDR")
	overrideString(&cfg.Server.StaticDir, "MUDRA_SERVER_STATIC_DIR")
	overrideString(&cfg.Log.Level, "MUDRA_LOG_LEVEL")
	overrideString(&cfg.Log.Format, "MUDRA_LOG_FORMAT")
	overrideString(&cfg.Store.DataDir, "MUDRA_DATA_DIR")
	overrideString(&cfg.Store.Path, "MUDRA_STORE_PATH")
	overrideInt(&cfg.Detection.CameraID, "MUDRA_CAMERA_ID")
	overrideInt(&cfg.Detection.TickRate, "MUDRA_TICK_RATE")
	overrideBool(&cfg.Detection.MirrorX, "MUDRA_MIRROR_X")
	overrideString(&cfg.Detection.Detector.ScriptPath, "MUDRA_DETECTOR_SCRIPT")
	overrideBool(&cfg.Classifier.Thresholds.ScaleByHand, "MUDRA_SCALE_BY_HAND")
	overrideBool(&cfg.Classifier.Templates, "MUDRA_TEMPLATES")
	overrideInt(&cfg.Session.Smoother.MinFrames, "MUDRA_MIN_FRAMES")
	overrideBool(&cfg.Session.Smoother.NoneImmediate, "MUDRA_NONE_IMMEDIATE")
	overrideBool(&cfg.Autocorrect.Enabled, "MUDRA_AUTOCORRECT")
	overrideString(&cfg.Autocorrect.DictionaryPath, "MUDRA_DICTIONARY")
	overrideBool(&cfg.Plugins.Enabled, "MUDRA_PLUGINS")
	overrideString(&cfg.Plugins.Dir, "MUDRA_PLUGIN_DIR")
	overrideBool(&cfg.Bus.Enabled, "MUDRA_BUS_ENABLED")
	overrideString(&cfg.Bus.URL, "MUDRA_BUS_URL")
	overrideString(&cfg.Bus.SubjectPrefix, "MUDRA_BUS_SUBJECT_PREFIX")
	overrideBool(&cfg.Metrics.Enabled, "MUDRA_METRICS")
	overrideBool(&cfg.Tray.Enabled, "MUDRA_TRAY")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}
