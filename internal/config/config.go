package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/netip"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 9000
	DefaultDeviceChannel   = 0
	DefaultRequestTimeout  = 5 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Config is read once at startup and never changed afterwards.
type Config struct {
	BindHost        string
	BindPort        uint16
	DeviceHost      string
	DeviceChannel   int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	LogLevel        logrus.Level
}

// ConfigError reports a missing or invalid environment variable.
type ConfigError struct {
	Variable string
	Err      error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %v", e.Variable, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// LoadDotEnv reads filename into the process environment if it exists.
// Variables that are already set are not overridden.
func LoadDotEnv(filename string) (bool, error) {
	if _, err := os.Stat(filename); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err := godotenv.Load(filename); err != nil {
		return false, fmt.Errorf("error loading %s: %w", filename, err)
	}
	return true, nil
}

// Load builds the configuration from environment variables.
func Load() (Config, error) {
	env := viper.New()
	env.AutomaticEnv()
	env.SetDefault("HOST", DefaultHost)
	env.SetDefault("PORT", strconv.Itoa(DefaultPort))
	env.SetDefault("SHELLY_DEVICE_ID", strconv.Itoa(DefaultDeviceChannel))
	env.SetDefault("SHELLY_TIMEOUT", DefaultRequestTimeout.String())
	env.SetDefault("SHUTDOWN_TIMEOUT", DefaultShutdownTimeout.String())
	env.SetDefault("LOG_LEVEL", logrus.InfoLevel.String())

	cfg := Config{}

	host := env.GetString("HOST")
	if _, err := netip.ParseAddr(host); err != nil {
		return Config{}, &ConfigError{Variable: "HOST", Err: err}
	}
	cfg.BindHost = host

	port, err := strconv.ParseUint(env.GetString("PORT"), 10, 16)
	if err != nil {
		return Config{}, &ConfigError{Variable: "PORT", Err: err}
	}
	cfg.BindPort = uint16(port)

	if !env.IsSet("SHELLY_HOST") {
		return Config{}, &ConfigError{Variable: "SHELLY_HOST", Err: fmt.Errorf("environment variable is required")}
	}
	cfg.DeviceHost = env.GetString("SHELLY_HOST")

	channel, err := strconv.Atoi(env.GetString("SHELLY_DEVICE_ID"))
	if err != nil {
		return Config{}, &ConfigError{Variable: "SHELLY_DEVICE_ID", Err: err}
	}
	if channel < 0 {
		return Config{}, &ConfigError{Variable: "SHELLY_DEVICE_ID", Err: fmt.Errorf("must not be negative, got %d", channel)}
	}
	cfg.DeviceChannel = channel

	if cfg.RequestTimeout, err = readDuration(env, "SHELLY_TIMEOUT"); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = readDuration(env, "SHUTDOWN_TIMEOUT"); err != nil {
		return Config{}, err
	}

	level, err := logrus.ParseLevel(env.GetString("LOG_LEVEL"))
	if err != nil {
		return Config{}, &ConfigError{Variable: "LOG_LEVEL", Err: err}
	}
	cfg.LogLevel = level

	return cfg, nil
}

// ListenAddress is the host:port the metrics server binds to.
func (c Config) ListenAddress() string {
	return net.JoinHostPort(c.BindHost, strconv.Itoa(int(c.BindPort)))
}

// StatusURL is the device endpoint polled on every scrape.
func (c Config) StatusURL() string {
	return fmt.Sprintf("http://%s/rpc/Switch.GetStatus?id=%d", c.DeviceHost, c.DeviceChannel)
}

func readDuration(env *viper.Viper, name string) (time.Duration, error) {
	value, err := time.ParseDuration(env.GetString(name))
	if err != nil {
		return 0, &ConfigError{Variable: name, Err: err}
	}
	if value <= 0 {
		return 0, &ConfigError{Variable: name, Err: fmt.Errorf("must be positive, got %s", value)}
	}
	return value, nil
}
