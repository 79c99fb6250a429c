package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/osc_bridge/internal/orientation"
)

// Sample sources.
const (
	SourceMock = "mock"
	SourceMQTT = "mqtt"
)

// Config holds all application configuration values.
type Config struct {
	// OSC output
	OSCHost         string
	OSCPort         int
	Axes            orientation.AxisEnablement
	Reference       orientation.Quaternion
	MinSendInterval time.Duration // negative disables the floor
	SendTimeout     time.Duration
	ResolveTimeout  time.Duration
	ChangeEpsilon   float64
	AngleWrap       orientation.WrapPolicy
	TrueNorth       bool

	// Samples
	SampleSource       string // "mock" or "mqtt"
	MockSampleInterval time.Duration

	// MQTT
	MQTTBroker            string
	MQTTClientIDBridge    string
	MQTTClientIDSimulator string

	// Topics
	TopicRotation  string
	TopicSuspended string
	TopicAngles    string // optional mirror of every sent triple

	// Web Server (0 disables)
	WebServerPort  int
	StatusInterval time.Duration

	// GPS (empty port disables)
	GPSSerialPort string
	GPSBaudRate   int

	WatchConfig bool
}

// Default returns the configuration used for keys a file leaves out.
func Default() *Config {
	return &Config{
		OSCHost:               "127.0.0.1",
		OSCPort:               9000,
		Axes:                  orientation.AllAxes,
		Reference:             orientation.FlipX,
		MinSendInterval:       10 * time.Millisecond,
		SendTimeout:           50 * time.Millisecond,
		ResolveTimeout:        2 * time.Second,
		AngleWrap:             orientation.WrapNone,
		SampleSource:          SourceMock,
		MockSampleInterval:    20 * time.Millisecond,
		MQTTBroker:            "tcp://localhost:1883",
		MQTTClientIDBridge:    "osc-bridge",
		MQTTClientIDSimulator: "osc-bridge-simulator",
		TopicRotation:         "oscbridge/rotation",
		TopicSuspended:        "oscbridge/suspended",
		StatusInterval:        500 * time.Millisecond,
		GPSBaudRate:           9600,
	}
}

// Package-level unexported variables for the singleton:
//   - globalConfig is only reachable through InitGlobal, Set and Get.
//   - configOnce makes InitGlobal load the file at most once.
//   - configMu guards globalConfig; Set takes the write lock when a reload
//     replaces it, Get takes the read lock.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct. Files
// ending in .yaml or .yml are read as a YAML mapping of the same keys;
// anything else is KEY=VALUE lines.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		return parseYAML(file)
	default:
		return Parse(file)
	}
}

// Parse reads KEY=VALUE lines on top of the defaults.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseYAML(r io.Reader) (*Config, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return Default(), nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := Default()
	if len(doc.Content) == 0 {
		return cfg, cfg.validate()
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("config line %d: top level must be a mapping", root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("config line %d: %s must be a scalar", v.Line, k.Value)
		}
		if err := cfg.setValue(strings.ToUpper(k.Value), v.Value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", k.Line, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// OSC output
	case "OSC_HOST":
		c.OSCHost = value
	case "OSC_PORT":
		c.OSCPort, err = parseInt(key, value)
	case "YAW_ENABLED":
		c.Axes.Yaw, err = parseBool(key, value)
	case "PITCH_ENABLED":
		c.Axes.Pitch, err = parseBool(key, value)
	case "ROLL_ENABLED":
		c.Axes.Roll, err = parseBool(key, value)
	case "REFERENCE_QUATERNION":
		q, perr := orientation.ParseQuaternion(value)
		if perr != nil {
			return fmt.Errorf("invalid REFERENCE_QUATERNION %q: %w", value, perr)
		}
		c.Reference = q
	case "MIN_SEND_INTERVAL":
		c.MinSendInterval, err = parseMillis(key, value)
	case "SEND_TIMEOUT":
		c.SendTimeout, err = parseMillis(key, value)
	case "RESOLVE_TIMEOUT":
		c.ResolveTimeout, err = parseMillis(key, value)
	case "CHANGE_EPSILON":
		eps, perr := strconv.ParseFloat(value, 64)
		if perr != nil {
			return fmt.Errorf("invalid CHANGE_EPSILON %q: %w", value, perr)
		}
		if eps < 0 {
			return fmt.Errorf("CHANGE_EPSILON must not be negative, got %v", eps)
		}
		c.ChangeEpsilon = eps
	case "ANGLE_WRAP":
		p, perr := orientation.ParseWrapPolicy(value)
		if perr != nil {
			return fmt.Errorf("invalid ANGLE_WRAP %q: %w", value, perr)
		}
		c.AngleWrap = p
	case "TRUE_NORTH":
		c.TrueNorth, err = parseBool(key, value)

	// Samples
	case "SAMPLE_SOURCE":
		c.SampleSource = strings.ToLower(value)
	case "MOCK_SAMPLE_INTERVAL":
		c.MockSampleInterval, err = parseMillis(key, value)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_BRIDGE":
		c.MQTTClientIDBridge = value
	case "MQTT_CLIENT_ID_SIMULATOR":
		c.MQTTClientIDSimulator = value

	// Topics
	case "TOPIC_ROTATION":
		c.TopicRotation = value
	case "TOPIC_SUSPENDED":
		c.TopicSuspended = value
	case "TOPIC_ANGLES":
		c.TopicAngles = value

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)
	case "STATUS_INTERVAL":
		c.StatusInterval, err = parseMillis(key, value)

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		c.GPSBaudRate, err = parseInt(key, value)

	case "WATCH_CONFIG":
		c.WatchConfig, err = parseBool(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}
	return err
}

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

// parseMillis reads a duration given in milliseconds.
func parseMillis(key, value string) (time.Duration, error) {
	ms, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// validate checks ranges and the fields the chosen source depends on.
func (c *Config) validate() error {
	if c.OSCPort < 0 || c.OSCPort > 65535 {
		return fmt.Errorf("OSC_PORT must be 0-65535, got %d", c.OSCPort)
	}
	if c.SendTimeout <= 0 {
		return fmt.Errorf("SEND_TIMEOUT must be positive")
	}
	if c.ResolveTimeout <= 0 {
		return fmt.Errorf("RESOLVE_TIMEOUT must be positive")
	}
	switch c.SampleSource {
	case SourceMock:
		if c.MockSampleInterval <= 0 {
			return fmt.Errorf("MOCK_SAMPLE_INTERVAL must be positive")
		}
	case SourceMQTT:
		if c.MQTTBroker == "" {
			return fmt.Errorf("MQTT_BROKER is required when SAMPLE_SOURCE=mqtt")
		}
		if c.TopicRotation == "" {
			return fmt.Errorf("TOPIC_ROTATION is required when SAMPLE_SOURCE=mqtt")
		}
	default:
		return fmt.Errorf("SAMPLE_SOURCE must be %q or %q, got %q", SourceMock, SourceMQTT, c.SampleSource)
	}
	if c.TopicAngles != "" && c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required when TOPIC_ANGLES is set")
	}
	if c.WebServerPort < 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT must be 0-65535, got %d", c.WebServerPort)
	}
	if c.WebServerPort != 0 && c.StatusInterval <= 0 {
		return fmt.Errorf("STATUS_INTERVAL must be positive")
	}
	if c.GPSSerialPort != "" && c.GPSBaudRate <= 0 {
		return fmt.Errorf("GPS_BAUD_RATE is required when GPS_SERIAL_PORT is set")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once so only the first call reads the file.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Set replaces the global configuration, e.g. after a reload.
func Set(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	globalConfig = cfg
}

// Get returns the global configuration instance.
// InitGlobal (or Set) must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
