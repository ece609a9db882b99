package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Control   ControlConfig   `yaml:"control"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Sim       SimConfig       `yaml:"sim"`
	Sensors   SensorsConfig   `yaml:"sensors"`
	Arming    ArmingConfig    `yaml:"arming"`
	Commander CommanderConfig `yaml:"commander"`
}

type ControlConfig struct {
	Period      Duration `yaml:"period"`
	UseObserver bool     `yaml:"use_observer"`
}

type TelemetryConfig struct {
	Dest     string   `yaml:"dest"`
	Interval Duration `yaml:"interval"`
}

type SimConfig struct {
	Enable   bool   `yaml:"enable"`
	Scenario string `yaml:"scenario"`
}

type SensorsConfig struct {
	Enable       bool   `yaml:"enable"`
	I2CBus       int    `yaml:"i2c_bus"`
	RangeAddr    uint16 `yaml:"range_addr"`
	IMUGyroAddr  uint16 `yaml:"imu_gyro_addr"`
	IMUAccelAddr uint16 `yaml:"imu_accel_addr"`
	SPIDev       string `yaml:"spi_dev"`
}

type ArmingConfig struct {
	Enable bool `yaml:"enable"`
	Pin    int  `yaml:"gpio_pin"`
}

type CommanderConfig struct {
	Enable bool   `yaml:"enable"`
	Port   string `yaml:"port"`
	Baud   int    `yaml:"baud"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultAndValidate fills defaults and rejects inconsistent combinations.
// It is exported so tests and the runtime can re-validate mutated configs.
func DefaultAndValidate(cfg *Config) error {
	if cfg.Control.Period < 0 {
		return fmt.Errorf("control.period must be > 0")
	}
	if cfg.Control.Period == 0 {
		cfg.Control.Period = Duration(2 * time.Millisecond)
	}

	if cfg.Telemetry.Dest == "" {
		return fmt.Errorf("telemetry.dest is required")
	}
	if cfg.Telemetry.Interval <= 0 {
		cfg.Telemetry.Interval = Duration(100 * time.Millisecond)
	}

	if cfg.Sim.Enable && cfg.Sensors.Enable {
		return fmt.Errorf("sim.enable and sensors.enable cannot both be true")
	}
	if !cfg.Sim.Enable && !cfg.Sensors.Enable {
		cfg.Sim.Enable = true
	}
	if cfg.Sim.Enable && cfg.Sim.Scenario == "" {
		return fmt.Errorf("sim.scenario is required when sim.enable is true")
	}

	if cfg.Sensors.Enable {
		// Without an external estimator on real hardware, the observer is
		// the only source of a full state estimate.
		if !cfg.Control.UseObserver {
			return fmt.Errorf("control.use_observer must be true when sensors.enable is true")
		}
		if cfg.Sensors.I2CBus == 0 {
			cfg.Sensors.I2CBus = 1
		}
		if cfg.Sensors.RangeAddr == 0 {
			cfg.Sensors.RangeAddr = 0x29
		}
		if cfg.Sensors.IMUGyroAddr == 0 {
			cfg.Sensors.IMUGyroAddr = 0x69
		}
		if cfg.Sensors.IMUAccelAddr == 0 {
			cfg.Sensors.IMUAccelAddr = 0x18
		}
		if cfg.Sensors.SPIDev == "" {
			cfg.Sensors.SPIDev = "/dev/spidev0.0"
		}
	}

	if cfg.Arming.Enable && cfg.Arming.Pin <= 0 {
		return fmt.Errorf("arming.gpio_pin is required when arming.enable is true")
	}

	if cfg.Commander.Enable {
		if cfg.Commander.Port == "" {
			return fmt.Errorf("commander.port is required when commander.enable is true")
		}
		if cfg.Commander.Baud <= 0 {
			cfg.Commander.Baud = 115200
		}
	}

	return nil
}
