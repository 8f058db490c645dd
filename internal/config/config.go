package config

import (
    "fmt"
    "os"
    "strconv"
    "time"

    "gopkg.in/yaml.v3"

    "fleetopt/internal/opt"
)

// Config is the process configuration: service wiring from the environment,
// optimizer parameters from an optional YAML file (CONFIG_FILE). The baseline
// constants live here on purpose — they are assumptions needing calibration,
// not facts to hardcode.
type Config struct {
    Port           string
    DatabaseURL    string
    RedisURL       string
    AdminAPIKey    string
    RiskServiceURL string

    Optimizer Optimizer `yaml:"optimizer"`
    RateLimit RateLimit `yaml:"rateLimit"`
}

type Optimizer struct {
    AvgSpeedKmh      float64 `yaml:"avgSpeedKmh"`
    FuelPricePerL    float64 `yaml:"fuelPricePerL"`
    BaselineBudget   float64 `yaml:"baselineBudget"`
    CO2SavedRatio    float64 `yaml:"co2SavedRatio"`
    OnTimeImprovePct float64 `yaml:"onTimeImprovePct"`
    TimeBudgetMs     int     `yaml:"timeBudgetMs"`
}

// RateLimit bounds how often /v1/optimize may be called.
type RateLimit struct {
    PerSecond float64 `yaml:"perSecond"`
    Burst     int     `yaml:"burst"`
}

// Load builds the config from defaults, the YAML file named by CONFIG_FILE
// (if set), then environment overrides, in that order.
func Load() (Config, error) {
    d := opt.DefaultParams()
    cfg := Config{
        Port: "8080",
        Optimizer: Optimizer{
            AvgSpeedKmh:      d.AvgSpeedKmh,
            FuelPricePerL:    d.FuelPricePerL,
            BaselineBudget:   d.BaselineBudget,
            CO2SavedRatio:    d.CO2SavedRatio,
            OnTimeImprovePct: d.OnTimeImprovePct,
            TimeBudgetMs:     int(d.TimeBudget / time.Millisecond),
        },
        RateLimit: RateLimit{PerSecond: 2, Burst: 5},
    }

    if path := os.Getenv("CONFIG_FILE"); path != "" {
        data, err := os.ReadFile(path)
        if err != nil {
            return Config{}, fmt.Errorf("config: read %s: %w", path, err)
        }
        if err := yaml.Unmarshal(data, &cfg); err != nil {
            return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
        }
    }

    if v := os.Getenv("PORT"); v != "" { cfg.Port = v }
    cfg.DatabaseURL = os.Getenv("DATABASE_URL")
    cfg.RedisURL = os.Getenv("REDIS_URL")
    cfg.AdminAPIKey = os.Getenv("ADMIN_API_KEY")
    cfg.RiskServiceURL = os.Getenv("RISK_SERVICE_URL")
    if v := os.Getenv("SOLVER_TIME_BUDGET_MS"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n > 0 { cfg.Optimizer.TimeBudgetMs = n }
    }

    if err := cfg.validate(); err != nil {
        return Config{}, err
    }
    return cfg, nil
}

func (c Config) validate() error {
    o := c.Optimizer
    if o.AvgSpeedKmh <= 0 {
        return fmt.Errorf("config: avgSpeedKmh must be positive")
    }
    if o.FuelPricePerL <= 0 {
        return fmt.Errorf("config: fuelPricePerL must be positive")
    }
    if o.CO2SavedRatio < 0 || o.CO2SavedRatio > 1 {
        return fmt.Errorf("config: co2SavedRatio must be in [0,1]")
    }
    if o.TimeBudgetMs <= 0 {
        return fmt.Errorf("config: timeBudgetMs must be positive")
    }
    return nil
}

// Params converts the optimizer section to the core's parameter set.
func (c Config) Params() opt.Params {
    return opt.Params{
        AvgSpeedKmh:      c.Optimizer.AvgSpeedKmh,
        FuelPricePerL:    c.Optimizer.FuelPricePerL,
        BaselineBudget:   c.Optimizer.BaselineBudget,
        CO2SavedRatio:    c.Optimizer.CO2SavedRatio,
        OnTimeImprovePct: c.Optimizer.OnTimeImprovePct,
        TimeBudget:       time.Duration(c.Optimizer.TimeBudgetMs) * time.Millisecond,
    }
}
