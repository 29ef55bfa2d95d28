package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultListenAddr    = ":8000"
	defaultMetricsPath   = "/metrics"
	defaultRCONHost      = "127.0.0.1"
	defaultRCONPort      = 25575
	defaultRCONTimeout   = 5 * time.Second
	defaultRCONQPS       = 2.0
	defaultScrapeTimeout = 5 * time.Second
	defaultCommandPrefix = "!"
	defaultDataDir       = "./data"
	defaultLogLevel      = "info"
)

type Config struct {
	ListenAddr    string
	MetricsPath   string
	ScrapeTimeout time.Duration
	LogLevel      string

	RCONHost    string
	RCONPort    int
	RCONPass    string
	RCONTimeout time.Duration
	RCONQPS     float64

	// DockerContainerName enables the container gate and chat start/stop when set.
	DockerContainerName string

	MatrixHomeserver  string
	MatrixAccessToken string
	MatrixUser        string
	MatrixPassword    string
	MatrixUserID      string
	MatrixRoomID      string
	AllowedMXIDs      map[string]struct{}

	CommandPrefix string
	DataDir       string
}

// Duration lets TOML carry values such as "5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	value := strings.TrimSpace(string(text))
	if value == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value, err)
	}
	d.Duration = parsed
	return nil
}

type fileConfig struct {
	ListenAddr    string   `toml:"listen_addr"`
	MetricsPath   string   `toml:"metrics_path"`
	ScrapeTimeout Duration `toml:"scrape_timeout"`
	LogLevel      string   `toml:"log_level"`
	DataDir       string   `toml:"data_dir"`

	RCON struct {
		Host     string   `toml:"host"`
		Port     int      `toml:"port"`
		Password string   `toml:"password"`
		Timeout  Duration `toml:"timeout"`
		QPS      float64  `toml:"qps"`
	} `toml:"rcon"`

	Docker struct {
		ContainerName string `toml:"container_name"`
	} `toml:"docker"`

	Matrix struct {
		Homeserver    string   `toml:"homeserver"`
		AccessToken   string   `toml:"access_token"`
		User          string   `toml:"user"`
		Password      string   `toml:"password"`
		UserID        string   `toml:"user_id"`
		RoomID        string   `toml:"room_id"`
		AllowedMXIDs  []string `toml:"allowed_mxids"`
		CommandPrefix string   `toml:"command_prefix"`
	} `toml:"matrix"`
}

// Load builds the configuration from defaults, then the optional TOML file at
// path, then environment variables, and validates the result.
func Load(path string) (Config, error) {
	cfg := defaults()

	if strings.TrimSpace(path) != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		ListenAddr:    defaultListenAddr,
		MetricsPath:   defaultMetricsPath,
		ScrapeTimeout: defaultScrapeTimeout,
		LogLevel:      defaultLogLevel,
		RCONHost:      defaultRCONHost,
		RCONPort:      defaultRCONPort,
		RCONTimeout:   defaultRCONTimeout,
		RCONQPS:       defaultRCONQPS,
		AllowedMXIDs:  map[string]struct{}{},
		CommandPrefix: defaultCommandPrefix,
		DataDir:       defaultDataDir,
	}
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	setString(&c.ListenAddr, fc.ListenAddr)
	setString(&c.MetricsPath, fc.MetricsPath)
	setDuration(&c.ScrapeTimeout, fc.ScrapeTimeout.Duration)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.DataDir, fc.DataDir)

	setString(&c.RCONHost, fc.RCON.Host)
	if fc.RCON.Port != 0 {
		c.RCONPort = fc.RCON.Port
	}
	setString(&c.RCONPass, fc.RCON.Password)
	setDuration(&c.RCONTimeout, fc.RCON.Timeout.Duration)
	if fc.RCON.QPS != 0 {
		c.RCONQPS = fc.RCON.QPS
	}

	setString(&c.DockerContainerName, fc.Docker.ContainerName)

	setString(&c.MatrixHomeserver, fc.Matrix.Homeserver)
	setString(&c.MatrixAccessToken, fc.Matrix.AccessToken)
	setString(&c.MatrixUser, fc.Matrix.User)
	setString(&c.MatrixPassword, fc.Matrix.Password)
	setString(&c.MatrixUserID, fc.Matrix.UserID)
	setString(&c.MatrixRoomID, fc.Matrix.RoomID)
	setString(&c.CommandPrefix, fc.Matrix.CommandPrefix)
	if len(fc.Matrix.AllowedMXIDs) > 0 {
		c.AllowedMXIDs = parseAllowlist(strings.Join(fc.Matrix.AllowedMXIDs, ","))
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ListenAddr = envOrDefault("LISTEN_ADDR", c.ListenAddr)
	c.MetricsPath = envOrDefault("METRICS_PATH", c.MetricsPath)
	c.ScrapeTimeout = durationEnvOrDefault("SCRAPE_TIMEOUT", c.ScrapeTimeout)
	c.LogLevel = envOrDefault("LOG_LEVEL", c.LogLevel)
	c.DataDir = envOrDefault("DATA_DIR", c.DataDir)

	c.RCONHost = envOrDefault("RCON_HOST", c.RCONHost)
	c.RCONPort = intEnvOrDefault("RCON_PORT", c.RCONPort)
	c.RCONPass = envOrDefault("RCON_PASS", c.RCONPass)
	c.RCONTimeout = durationEnvOrDefault("RCON_TIMEOUT", c.RCONTimeout)
	c.RCONQPS = floatEnvOrDefault("RCON_QPS", c.RCONQPS)

	c.DockerContainerName = envOrDefault("DOCKER_CONTAINER_NAME", c.DockerContainerName)

	c.MatrixHomeserver = envOrDefault("MATRIX_HOMESERVER", c.MatrixHomeserver)
	c.MatrixAccessToken = envOrDefault("MATRIX_ACCESS_TOKEN", c.MatrixAccessToken)
	c.MatrixUser = envOrDefault("MATRIX_USER", c.MatrixUser)
	c.MatrixPassword = envOrDefault("MATRIX_PASSWORD", c.MatrixPassword)
	c.MatrixUserID = envOrDefault("MATRIX_USER_ID", c.MatrixUserID)
	c.MatrixRoomID = envOrDefault("MATRIX_ROOM_ID", c.MatrixRoomID)
	c.CommandPrefix = envOrDefault("COMMAND_PREFIX", c.CommandPrefix)
	if raw := strings.TrimSpace(os.Getenv("ALLOWED_MXIDS")); raw != "" {
		c.AllowedMXIDs = parseAllowlist(raw)
	}
}

// MatrixEnabled reports whether the chat console should be started.
func (c Config) MatrixEnabled() bool {
	return c.MatrixHomeserver != ""
}

func (c Config) DockerEnabled() bool {
	return c.DockerContainerName != ""
}

func (c Config) SyncTokenPath() string {
	return filepath.Join(c.DataDir, "sync.token")
}

func (c Config) AccessTokenPath() string {
	return filepath.Join(c.DataDir, "matrix_access.token")
}

func (c Config) validate() error {
	if c.RCONPass == "" {
		return errors.New("RCON_PASS is required")
	}
	if c.RCONPort <= 0 || c.RCONPort > 65535 {
		return fmt.Errorf("invalid RCON_PORT: %d", c.RCONPort)
	}
	if c.RCONQPS < 0 {
		return fmt.Errorf("invalid RCON_QPS: %v", c.RCONQPS)
	}
	if c.ScrapeTimeout <= 0 {
		return fmt.Errorf("invalid SCRAPE_TIMEOUT: %s", c.ScrapeTimeout)
	}
	if !strings.HasPrefix(c.MetricsPath, "/") {
		return fmt.Errorf("METRICS_PATH must start with /: %q", c.MetricsPath)
	}
	if c.MatrixEnabled() {
		return c.validateMatrix()
	}
	return nil
}

func (c Config) validateMatrix() error {
	if c.MatrixRoomID == "" {
		return errors.New("MATRIX_ROOM_ID is required")
	}
	if len(c.AllowedMXIDs) == 0 {
		return errors.New("ALLOWED_MXIDS must include at least one MXID")
	}
	if c.MatrixAccessToken == "" {
		if c.MatrixUser == "" || c.MatrixPassword == "" {
			return errors.New("set MATRIX_ACCESS_TOKEN or both MATRIX_USER and MATRIX_PASSWORD")
		}
	}
	if strings.TrimSpace(c.CommandPrefix) == "" {
		return errors.New("COMMAND_PREFIX must not be empty")
	}
	return nil
}

func parseAllowlist(input string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, raw := range strings.Split(input, ",") {
		mxid := strings.TrimSpace(raw)
		if mxid == "" {
			continue
		}
		out[mxid] = struct{}{}
	}
	return out
}

func setString(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}

func setDuration(dst *time.Duration, value time.Duration) {
	if value != 0 {
		*dst = value
	}
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func intEnvOrDefault(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func floatEnvOrDefault(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return f
}

func durationEnvOrDefault(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
