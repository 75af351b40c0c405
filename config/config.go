// Package config loads process settings from defaults, an optional YAML file
// and the environment (including an optional .env file).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr      string `yaml:"listen_addr"`
	StorePath       string `yaml:"store_path"`
	BroadcastAddr   string `yaml:"broadcast_addr"`
	DefaultMinFloor int    `yaml:"default_min_floor"`
	DefaultMaxFloor int    `yaml:"default_max_floor"`
	MaxFloors       int    `yaml:"max_floors"`
}

const (
	envListenAddr    = "ELEVATOR_LISTEN_ADDR"
	envStorePath     = "ELEVATOR_STORE_PATH"
	envBroadcastAddr = "ELEVATOR_BROADCAST_ADDR"
	envMinFloor      = "ELEVATOR_DEFAULT_MIN_FLOOR"
	envMaxFloor      = "ELEVATOR_DEFAULT_MAX_FLOOR"
	envMaxFloors     = "ELEVATOR_MAX_FLOORS"
)

func Default() Config {
	return Config{
		ListenAddr:      ":8000",
		StorePath:       ".elevator_state.yaml",
		BroadcastAddr:   "",
		DefaultMinFloor: 0,
		DefaultMaxFloor: 10,
		MaxFloors:       1000,
	}
}

// Load starts from Default, applies the YAML file at path and then the
// variables of the .env file at envPath and of the process environment, the
// latter taking precedence. Missing files are skipped; empty paths too.
func Load(path, envPath string) (Config, error) {
	c := Default()

	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return c, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(content, &c); err != nil {
				return c, fmt.Errorf("decode config `%s`: %w", path, err)
			}
		}
	}

	env := map[string]string{}
	if envPath != "" {
		fileEnv, err := godotenv.Read(envPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return c, fmt.Errorf("read env file: %w", err)
		default:
			env = fileEnv
		}
	}
	for _, key := range []string{envListenAddr, envStorePath, envBroadcastAddr, envMinFloor, envMaxFloor, envMaxFloors} {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}

	if err := c.applyEnv(env); err != nil {
		return c, err
	}
	return c, c.Validate()
}

func (c *Config) applyEnv(env map[string]string) error {
	if v, ok := env[envListenAddr]; ok {
		c.ListenAddr = v
	}
	if v, ok := env[envStorePath]; ok {
		c.StorePath = v
	}
	if v, ok := env[envBroadcastAddr]; ok {
		c.BroadcastAddr = v
	}
	for key, dst := range map[string]*int{envMinFloor: &c.DefaultMinFloor, envMaxFloor: &c.DefaultMaxFloor, envMaxFloors: &c.MaxFloors} {
		v, ok := env[key]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("converting %s to int: %w", key, err)
		}
		*dst = n
	}
	return nil
}

func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("config: listen_addr is empty")
	}
	if c.DefaultMinFloor > c.DefaultMaxFloor {
		return fmt.Errorf("config: default_min_floor %d above default_max_floor %d", c.DefaultMinFloor, c.DefaultMaxFloor)
	}
	if c.MaxFloors < 1 {
		return fmt.Errorf("config: max_floors %d is not positive", c.MaxFloors)
	}
	if uint64(c.DefaultMaxFloor)-uint64(c.DefaultMinFloor) >= uint64(c.MaxFloors) {
		return fmt.Errorf("config: default range %d..%d exceeds max_floors %d", c.DefaultMinFloor, c.DefaultMaxFloor, c.MaxFloors)
	}
	return nil
}
