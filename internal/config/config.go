package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server     ServerConfig     `toml:"server"`     // HTTP server settings
	Logging    LoggingConfig    `toml:"logging"`    // Application logging settings
	Storage    StorageConfig    `toml:"storage"`    // Data persistence settings
	Vessel     VesselConfig     `toml:"vessel"`     // Vessel defaults for planning and navigation
	Navigation NavigationConfig `toml:"navigation"` // Active navigation behavior settings
	Simulation SimulationConfig `toml:"simulation"` // Vessel position simulator settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port               int      `toml:"port"`                  // HTTP port for the server
	Host               string   `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`  // List of origins allowed for CORS requests (use ["*"] for all origins)
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response (0 = no timeout, recommended for streaming)
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	Type       string `toml:"type"`        // Storage backend type (currently only "sqlite" is supported)
	SQLitePath string `toml:"sqlite_path"` // Path to the SQLite database file
}

// VesselConfig contains vessel defaults used when a route does not carry
// its own planning figures
type VesselConfig struct {
	DefaultCruisingSpeedKn float64 `toml:"default_cruising_speed_kn"` // Default cruising speed in knots for new routes
	DefaultFuelBurnGPH     float64 `toml:"default_fuel_burn_gph"`     // Default fuel burn in gallons per hour for new routes
	DefaultRoutingMethod   string  `toml:"default_routing_method"`    // "great-circle" or "rhumb-line"
}

// NavigationConfig contains active navigation behavior settings
type NavigationConfig struct {
	DefaultArrivalRadiusNM float64 `toml:"default_arrival_radius_nm"` // Arrival detection radius in nautical miles (default: 0.1)
	AutoAdvance            bool    `toml:"auto_advance"`              // Automatically advance to the next point on arrival
	MagneticBearings       bool    `toml:"magnetic_bearings"`         // Include magnetic bearing (WMM declination applied) in leg data
	MinSpeedKn             float64 `toml:"min_speed_kn"`              // Floor applied to speed over ground for ETA computation (default: 1.0)
}

// SimulationConfig contains vessel position simulator settings
type SimulationConfig struct {
	Enabled             bool    `toml:"enabled"`              // Enable the built-in dead-reckoning simulator
	UpdateIntervalSecs  int     `toml:"update_interval_secs"` // Seconds between simulated position reports (default: 1)
	InitialLat          float64 `toml:"initial_lat"`          // Starting latitude for the simulated vessel
	InitialLon          float64 `toml:"initial_lon"`          // Starting longitude for the simulated vessel
	InitialHeadingDeg   float64 `toml:"initial_heading_deg"`  // Starting true heading in degrees
	InitialSpeedKn      float64 `toml:"initial_speed_kn"`     // Starting speed in knots
	FollowActiveRoute   bool    `toml:"follow_active_route"`  // Steer the simulated vessel toward the active navigation target
	AutoStartOnActivate bool    `toml:"auto_start"`           // Start the simulated vessel immediately on server startup
}

// Load loads the configuration from the specified TOML file path
func Load(path string) (*Config, error) {
	var config Config

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read the config file
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &config, nil
}

// LoadWithFallback tries to load the config from the preferred path first,
// then falls back to the default locations
func LoadWithFallback(preferredPath string) (*Config, error) {
	// List of paths to check in order of preference
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// Validate validates the configuration and fills in defaults for
// fields that were left unset
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if len(c.Server.CORSAllowedOrigins) == 0 {
		c.Server.CORSAllowedOrigins = []string{"*"}
	}

	// Validate logging config
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}

	// Validate storage config
	if c.Storage.Type == "" {
		c.Storage.Type = "sqlite"
	}
	if c.Storage.Type != "sqlite" {
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "helmsman.db"
	}

	// Validate vessel defaults
	if c.Vessel.DefaultCruisingSpeedKn < 0 {
		return fmt.Errorf("invalid default cruising speed: %f", c.Vessel.DefaultCruisingSpeedKn)
	}
	if c.Vessel.DefaultFuelBurnGPH < 0 {
		return fmt.Errorf("invalid default fuel burn: %f", c.Vessel.DefaultFuelBurnGPH)
	}
	if c.Vessel.DefaultRoutingMethod == "" {
		c.Vessel.DefaultRoutingMethod = "great-circle"
	}
	switch c.Vessel.DefaultRoutingMethod {
	case "great-circle", "rhumb-line":
	default:
		return fmt.Errorf("invalid default routing method: %s", c.Vessel.DefaultRoutingMethod)
	}

	// Validate navigation config
	if c.Navigation.DefaultArrivalRadiusNM < 0 {
		return fmt.Errorf("invalid arrival radius: %f", c.Navigation.DefaultArrivalRadiusNM)
	}
	if c.Navigation.DefaultArrivalRadiusNM == 0 {
		c.Navigation.DefaultArrivalRadiusNM = 0.1
	}
	if c.Navigation.MinSpeedKn < 0 {
		return fmt.Errorf("invalid minimum speed: %f", c.Navigation.MinSpeedKn)
	}
	if c.Navigation.MinSpeedKn == 0 {
		c.Navigation.MinSpeedKn = 1.0
	}

	// Validate simulation config
	if c.Simulation.UpdateIntervalSecs < 0 {
		return fmt.Errorf("invalid simulation update interval: %d", c.Simulation.UpdateIntervalSecs)
	}
	if c.Simulation.UpdateIntervalSecs == 0 {
		c.Simulation.UpdateIntervalSecs = 1
	}
	if c.Simulation.Enabled {
		if c.Simulation.InitialLat < -90 || c.Simulation.InitialLat > 90 {
			return fmt.Errorf("invalid simulation initial latitude: %f", c.Simulation.InitialLat)
		}
		if c.Simulation.InitialLon < -180 || c.Simulation.InitialLon > 180 {
			return fmt.Errorf("invalid simulation initial longitude: %f", c.Simulation.InitialLon)
		}
		if c.Simulation.InitialSpeedKn < 0 {
			return fmt.Errorf("invalid simulation initial speed: %f", c.Simulation.InitialSpeedKn)
		}
	}

	return nil
}
