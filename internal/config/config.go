package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/bryanchriswhite/CamLayer/internal/logger"
)

// CameraConfig holds capture device settings
type CameraConfig struct {
	// Device is the V4L2 device path (e.g., /dev/video0)
	Device string `json:"device" yaml:"device"`

	// Width and Height are the preferred capture resolution.
	// The device may negotiate something else; the pipeline follows
	// whatever the device actually reports per frame.
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`

	// FPS is the preferred capture rate. Zero lets the device decide.
	FPS int `json:"fps" yaml:"fps"`

	// Backend selects the capture backend: "v4l2", "gstreamer" or "auto"
	Backend string `json:"backend" yaml:"backend"`
}

// OverlayConfig holds thumbnail overlay window settings
type OverlayConfig struct {
	// SizeFraction is the overlay width as a fraction of the main window width
	SizeFraction float32 `json:"size_fraction" yaml:"size_fraction"`

	// MarginPx is the distance from the main window's top-right corner
	MarginPx int `json:"margin_px" yaml:"margin_px"`

	// CornerRadiusPx is the rounded-corner radius of the camera quad
	CornerRadiusPx float64 `json:"corner_radius_px" yaml:"corner_radius_px"`
}

// WindowConfig holds main window settings
type WindowConfig struct {
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
	Title  string `json:"title" yaml:"title"`
}

// Config is the full application configuration
type Config struct {
	Camera     CameraConfig  `json:"camera" yaml:"camera"`
	Overlay    OverlayConfig `json:"overlay" yaml:"overlay"`
	Window     WindowConfig  `json:"window" yaml:"window"`
	ServerPort int           `json:"server_port" yaml:"server_port"`
	LogLevel   string        `json:"log_level" yaml:"log_level"`
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configFile string) (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "camlayer")
	defaultConfigPath := filepath.Join(configDir, "config.yaml")

	actualConfigPath := defaultConfigPath
	if configFile != "" {
		actualConfigPath = configFile
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = Defaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Str("device", m.config.Camera.Device).
		Msg("Config loaded")

	return m, nil
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		Camera: CameraConfig{
			Device:  "/dev/video0",
			Width:   1280,
			Height:  720,
			FPS:     30,
			Backend: "auto",
		},
		Overlay: OverlayConfig{
			SizeFraction:   0.4,
			MarginPx:       20,
			CornerRadiusPx: 12.0,
		},
		Window: WindowConfig{
			Width:  1024,
			Height: 768,
			Title:  "CamLayer",
		},
		ServerPort: 8080,
		LogLevel:   "info",
	}
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Validate checks configuration sanity
func (c *Config) Validate() error {
	if c.Camera.Device == "" && c.Camera.Backend != "gstreamer" {
		return fmt.Errorf("camera.device must be set")
	}
	if c.Overlay.SizeFraction <= 0 || c.Overlay.SizeFraction > 1 {
		return fmt.Errorf("overlay.size_fraction must be in (0, 1], got %v", c.Overlay.SizeFraction)
	}
	if c.Overlay.CornerRadiusPx < 0 {
		return fmt.Errorf("overlay.corner_radius_px must be >= 0, got %v", c.Overlay.CornerRadiusPx)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := *m.config
	return &cfg
}

// GetConfigPath returns the path of the loaded config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// SetPort overrides the server port
func (m *Manager) SetPort(port int) {
	m.mu.Lock()
	m.config.ServerPort = port
	m.mu.Unlock()
}

// SetLogLevel overrides the log level
func (m *Manager) SetLogLevel(level string) {
	m.mu.Lock()
	m.config.LogLevel = level
	m.mu.Unlock()
}

// SetDevice overrides the capture device path
func (m *Manager) SetDevice(device string) {
	m.mu.Lock()
	m.config.Camera.Device = device
	m.mu.Unlock()
}
