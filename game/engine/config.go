package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfig returns the classic 10x10 episode configuration
func DefaultConfig() *EnvConfig {
	return &EnvConfig{
		Name:             "classic",
		Description:      "10x10 city grid with 5 obstacles and 3 single-use charging stations",
		GridSize:         DefaultGridSize,
		CellSize:         DefaultCellSize,
		MaxBattery:       DefaultMaxBattery,
		BatteryDecrement: DefaultBatteryDecrement,
		ObstacleCount:    DefaultObstacleCount,
		ChargerCount:     DefaultChargerCount,
		Rewards: Rewards{
			Obstacle: -1,
			Charge:   5,
			Pickup:   10,
			Dropoff:  20,
			Default:  0,
		},
		MaxPlacementAttempts: DefaultMaxPlacementAttempts,
	}
}

// ValidateConfig validates an episode configuration for correctness and
// checks that the grid can hold every reserved cell.
func ValidateConfig(config *EnvConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config cannot be nil", ErrInvalidConfig)
	}
	if config.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}

	if config.GridSize < MinGridSize || config.GridSize > MaxGridSize {
		return fmt.Errorf("%w: grid_size must be between %d and %d, got %d",
			ErrInvalidConfig, MinGridSize, MaxGridSize, config.GridSize)
	}
	if config.CellSize < 1 || config.CellSize > MaxCellSize {
		return fmt.Errorf("%w: cell_size must be between 1 and %d, got %d",
			ErrInvalidConfig, MaxCellSize, config.CellSize)
	}
	if side := config.GridSize * config.CellSize; side > MaxObservationSide {
		return fmt.Errorf("%w: grid_size*cell_size must be at most %d, got %d",
			ErrInvalidConfig, MaxObservationSide, side)
	}

	if config.MaxBattery <= 0 || config.MaxBattery > MaxBatteryLimit {
		return fmt.Errorf("%w: max_battery must be in (0, %g], got %g",
			ErrInvalidConfig, MaxBatteryLimit, config.MaxBattery)
	}
	if config.BatteryDecrement <= 0 || config.BatteryDecrement > config.MaxBattery {
		return fmt.Errorf("%w: battery_decrement must be in (0, max_battery], got %g",
			ErrInvalidConfig, config.BatteryDecrement)
	}

	if config.ObstacleCount < 0 {
		return fmt.Errorf("%w: obstacle_count cannot be negative, got %d", ErrInvalidConfig, config.ObstacleCount)
	}
	if config.ChargerCount < 0 {
		return fmt.Errorf("%w: charger_count cannot be negative, got %d", ErrInvalidConfig, config.ChargerCount)
	}
	if config.MaxPlacementAttempts < 1 {
		return fmt.Errorf("%w: max_placement_attempts must be at least 1, got %d",
			ErrInvalidConfig, config.MaxPlacementAttempts)
	}

	cells := config.GridSize * config.GridSize
	if reserved := config.ReservedCells(); reserved > cells {
		return fmt.Errorf("%w: %d reserved cells do not fit a %dx%d grid",
			ErrGridTooSmall, reserved, config.GridSize, config.GridSize)
	}

	return nil
}

// DecodeConfig parses a configuration on top of DefaultConfig, so fields
// missing from the document keep their default values. format is a file
// extension such as ".json" or ".yaml".
func DecodeConfig(data []byte, format string) (*EnvConfig, error) {
	config := DefaultConfig()
	config.Name = ""
	config.Description = ""

	switch strings.ToLower(format) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse yaml config: %w", err)
		}
	case ".json", "":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse json config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}

	return config, nil
}

// LoadConfigFile loads and validates a configuration from a JSON or YAML file
func LoadConfigFile(filename string) (*EnvConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := DecodeConfig(data, filepath.Ext(filename))
	if err != nil {
		return nil, err
	}
	if config.Name == "" {
		config.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}

	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}
