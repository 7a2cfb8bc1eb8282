package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values shared by the
// sensor_hub binaries.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientIDSensor  string
	MQTTClientIDGyro    string
	MQTTClientIDIMU     string
	MQTTClientIDGPS     string
	MQTTClientIDConsole string
	MQTTClientIDWeb     string
	MQTTClientIDDisplay string

	// Topics
	TopicEvents  string
	TopicSensors string
	TopicGPS     string

	// Bus sensor acquisition
	SensorBaseHandle int    // first handle assigned during discovery
	SensorName       string // select a discovered sensor by name; empty = first usable
	SamplePeriodUS   int    // batch sampling period in microseconds
	MaxLatencyMS     int    // batch maximum report latency in milliseconds

	// Discrete gyroscope device nodes
	GyroControlDevice string
	GyroInputDevice   string
	GyroHandle        int
	GyroDelayMS       int

	// Directly attached IMU (SPI)
	IMUSPIDevice string
	IMUCSPin     string
	IMUHandle    int
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte
	IMUPeriodMS  int

	// GPS
	GPSSerialPort string
	GPSBaudRate   int

	// Web server
	WebServerPort int

	// Display
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for the singleton pattern: the global
// config is set once through InitGlobal and read through Get; the RWMutex
// allows concurrent readers across goroutines.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

func defaults() *Config {
	return &Config{
		MQTTClientIDSensor:  "sensor-hub-producer",
		MQTTClientIDGyro:    "sensor-hub-gyro-producer",
		MQTTClientIDIMU:     "sensor-hub-imu-producer",
		MQTTClientIDGPS:     "sensor-hub-gps-producer",
		MQTTClientIDConsole: "sensor-hub-console",
		MQTTClientIDWeb:     "sensor-hub-web",
		MQTTClientIDDisplay: "sensor-hub-display",

		TopicEvents:  "sensors/events",
		TopicSensors: "sensors/list",
		TopicGPS:     "sensors/gps",

		SensorBaseHandle: 16,
		SamplePeriodUS:   10000, // 100 Hz
		MaxLatencyMS:     0,

		GyroControlDevice: "/dev/l3g4200d",
		GyroInputDevice:   "/dev/input/event0",
		GyroHandle:        1,
		GyroDelayMS:       10,

		IMUHandle:   2,
		IMUPeriodMS: 10,

		GPSBaudRate: 9600,

		WebServerPort: 8080,

		DisplayUpdateInterval: 250,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := defaults()
	scanner := bufio.NewScanner(file)
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

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_SENSOR":
		c.MQTTClientIDSensor = value
	case "MQTT_CLIENT_ID_GYRO":
		c.MQTTClientIDGyro = value
	case "MQTT_CLIENT_ID_IMU":
		c.MQTTClientIDIMU = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_EVENTS":
		c.TopicEvents = value
	case "TOPIC_SENSORS":
		c.TopicSensors = value
	case "TOPIC_GPS":
		c.TopicGPS = value

	// Bus sensor acquisition
	case "SENSOR_BASE_HANDLE":
		c.SensorBaseHandle, err = parseInt(key, value)
	case "SENSOR_NAME":
		c.SensorName = value
	case "SAMPLE_PERIOD_US":
		c.SamplePeriodUS, err = parseInt(key, value)
		if err == nil && c.SamplePeriodUS < 1 {
			return fmt.Errorf("SAMPLE_PERIOD_US must be at least 1, got %d", c.SamplePeriodUS)
		}
	case "MAX_LATENCY_MS":
		c.MaxLatencyMS, err = parseInt(key, value)

	// Gyroscope
	case "GYRO_CONTROL_DEVICE":
		c.GyroControlDevice = value
	case "GYRO_INPUT_DEVICE":
		c.GyroInputDevice = value
	case "GYRO_HANDLE":
		c.GyroHandle, err = parseInt(key, value)
	case "GYRO_DELAY_MS":
		c.GyroDelayMS, err = parseInt(key, value)

	// IMU
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_HANDLE":
		c.IMUHandle, err = parseInt(key, value)
	case "IMU_ACCEL_RANGE":
		rangeVal, rangeErr := parseInt(key, value)
		if rangeErr != nil {
			return rangeErr
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)
	case "IMU_GYRO_RANGE":
		rangeVal, rangeErr := parseInt(key, value)
		if rangeErr != nil {
			return rangeErr
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_GYRO_RANGE must be 0-3 (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s), got %d", rangeVal)
		}
		c.IMUGyroRange = byte(rangeVal)
	case "IMU_PERIOD_MS":
		c.IMUPeriodMS, err = parseInt(key, value)

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		c.GPSBaudRate, err = parseInt(key, value)

	// Web server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicEvents == "" {
		return fmt.Errorf("TOPIC_EVENTS is required")
	}
	if c.SensorBaseHandle < 1 {
		return fmt.Errorf("SENSOR_BASE_HANDLE must be positive")
	}
	return nil
}

// InitGlobal initializes the global configuration from file. Uses
// sync.Once so this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance. InitGlobal must be called
// first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
