// Package config loads the planner service configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"platewise/internal/models"
)

// DefaultPath is used when no --config flag is given
const DefaultPath = "configs/config.yaml"

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Database DatabaseConfig `yaml:"database"`
	Solver   SolverConfig   `yaml:"solver"`
	Planner  PlannerConfig  `yaml:"planner"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port        int             `yaml:"port" validate:"min=1,max=65535"`
	CORSOrigins []string        `yaml:"cors_origins"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	// JWTSecret enables bearer token checks on the optimize routes when set
	JWTSecret string `yaml:"jwt_secret"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" validate:"gte=0"`
	Burst int     `yaml:"burst" validate:"gte=0"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

type CatalogConfig struct {
	MenuPath string `yaml:"menu_path"`
	Watch    bool   `yaml:"watch"`
	Source   string `yaml:"source" validate:"oneof=file database"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite3 postgres"`
	DSN    string `yaml:"dsn"`
}

type SolverConfig struct {
	Timeout  time.Duration `yaml:"timeout" validate:"gte=0"`
	MaxNodes int           `yaml:"max_nodes" validate:"gte=0"`
}

// PlannerConfig holds the values substituted for fields a request leaves out
type PlannerConfig struct {
	TargetCalories     float64  `yaml:"target_calories" validate:"gte=0"`
	TargetProtein      float64  `yaml:"target_protein" validate:"gte=0"`
	SelectedMeals      []string `yaml:"selected_meals"`
	MinFruits          int      `yaml:"min_fruits" validate:"gte=0"`
	MaxFruits          int      `yaml:"max_fruits" validate:"gtefield=MinFruits"`
	CalorieTolerance   float64  `yaml:"calorie_tolerance" validate:"gte=0"`
	ProteinTolerance   float64  `yaml:"protein_tolerance" validate:"gte=0"`
	DiversityWeight    float64  `yaml:"diversity_weight"`
	MaxServingsPerItem int      `yaml:"max_servings_per_item" validate:"min=1"`
	NumPlans           int      `yaml:"num_plans" validate:"min=1,ltefield=MaxPlans"`
	MaxPlans           int      `yaml:"max_plans" validate:"min=1"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// DefaultConfig returns a Config with the stock planner defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"*"},
			RateLimit:   RateLimitConfig{RPS: 10, Burst: 20},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Catalog: CatalogConfig{
			MenuPath: "data/menu_data.json",
			Watch:    true,
			Source:   "file",
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "data/platewise.db",
		},
		Solver: SolverConfig{
			Timeout:  30 * time.Second,
			MaxNodes: 50000,
		},
		Planner: PlannerConfig{
			TargetCalories:     2000,
			TargetProtein:      150,
			SelectedMeals:      []string{"breakfast", "lunch", "dinner"},
			MinFruits:          1,
			MaxFruits:          3,
			CalorieTolerance:   300,
			ProteinTolerance:   20,
			DiversityWeight:    0.1,
			MaxServingsPerItem: 3,
			NumPlans:           3,
			MaxPlans:           10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the file at path over the defaults. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PLATEWISE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PLATEWISE_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("PLATEWISE_MENU_PATH"); v != "" {
		c.Catalog.MenuPath = v
	}
	if v := os.Getenv("PLATEWISE_DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("PLATEWISE_JWT_SECRET"); v != "" {
		c.Server.JWTSecret = v
	}
	if v := os.Getenv("PLATEWISE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate checks field ranges and enumerations
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// DefaultRequest converts the planner section into a request template
func (p PlannerConfig) DefaultRequest() models.PlanRequest {
	return models.PlanRequest{
		TargetCalories:     p.TargetCalories,
		TargetProtein:      p.TargetProtein,
		SelectedMeals:      append([]string{}, p.SelectedMeals...),
		MinFruits:          p.MinFruits,
		MaxFruits:          p.MaxFruits,
		CalorieTolerance:   p.CalorieTolerance,
		ProteinTolerance:   p.ProteinTolerance,
		DiversityWeight:    p.DiversityWeight,
		MaxServingsPerItem: p.MaxServingsPerItem,
	}
}
