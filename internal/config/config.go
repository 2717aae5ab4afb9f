package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/garyjia/forcing-workflow/internal/domain/policy"
)

// EnvPrefix namespaces environment overrides, e.g. FORCING_SERVER_PORT
const EnvPrefix = "FORCING"

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Policy   PolicyConfig   `mapstructure:"policy"`
	Lark     LarkConfig     `mapstructure:"lark"`
	SLA      SLAConfig      `mapstructure:"sla"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// MigrationsDir overrides the embedded migrations when set
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// PolicyConfig holds the authorization limits and thresholds.
// Amounts are strings so they parse exactly; a limit may be "unlimited".
type PolicyConfig struct {
	Limits                map[string]string `mapstructure:"limits"`
	RiskAnalysisThreshold string            `mapstructure:"risk_analysis_threshold"`
	CeilingRating         string            `mapstructure:"ceiling_rating"`
	CriticalAmount        string            `mapstructure:"critical_amount"`
	HighAmount            string            `mapstructure:"high_amount"`
	MediumAmount          string            `mapstructure:"medium_amount"`
	PriorityAmount        string            `mapstructure:"priority_amount"`
	UrgentDays            int               `mapstructure:"urgent_days"`
	HighDays              int               `mapstructure:"high_days"`
	EmergencyOperations   []string          `mapstructure:"emergency_operations"`
}

// LarkConfig holds Lark notification configuration
type LarkConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
	BaseURL   string `mapstructure:"base_url"`
	// Chats maps a role to the group chat that receives its notifications
	Chats map[string]string `mapstructure:"chats"`
}

// SLAConfig holds the SLA watcher configuration
type SLAConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	BatchSize     int           `mapstructure:"batch_size"`
	Horizon       time.Duration `mapstructure:"horizon"`
	FollowUpAfter time.Duration `mapstructure:"follow_up_after"`
}

// Load reads configuration from configPath (optional), a .env file next to
// the working directory when present, and FORCING_* environment variables.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv exports variables from path without overriding the environment
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.path", "data/forcing.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 0)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	// Policy defaults mirror policy.Default
	// One key per role so a file overriding a single limit keeps the others
	def := policy.Default()
	for role, l := range def.Limits {
		v.SetDefault("policy.limits."+role.String(), l.String())
	}
	v.SetDefault("policy.risk_analysis_threshold", def.RiskAnalysisThreshold.String())
	v.SetDefault("policy.ceiling_rating", def.CeilingRating.String())
	v.SetDefault("policy.critical_amount", def.CriticalAmount.String())
	v.SetDefault("policy.high_amount", def.HighAmount.String())
	v.SetDefault("policy.medium_amount", def.MediumAmount.String())
	v.SetDefault("policy.priority_amount", def.PriorityAmount.String())
	v.SetDefault("policy.urgent_days", def.UrgentDays)
	v.SetDefault("policy.high_days", def.HighDays)
	v.SetDefault("policy.emergency_operations", def.EmergencyOperations)

	// Lark defaults
	v.SetDefault("lark.enabled", false)

	// SLA defaults
	v.SetDefault("sla.enabled", true)
	v.SetDefault("sla.poll_interval", time.Minute)
	v.SetDefault("sla.batch_size", 50)
	v.SetDefault("sla.horizon", 48*time.Hour)
	v.SetDefault("sla.follow_up_after", 24*time.Hour)
}

// bindEnvVars binds the conventional credential variables
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("lark.app_id", "LARK_APP_ID")
	_ = v.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	_ = v.BindEnv("database.path", "FORCING_DB_PATH")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if _, err := c.Policy.Build(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	if c.Lark.Enabled {
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required when lark is enabled")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required when lark is enabled")
		}
		for role := range c.Lark.Chats {
			if _, err := policy.ParseRole(role); err != nil {
				return fmt.Errorf("lark.chats: %w", err)
			}
		}
	}

	if c.SLA.Enabled && c.SLA.PollInterval <= 0 {
		return fmt.Errorf("sla.poll_interval must be positive")
	}

	return nil
}

// Build converts the configured values into a validated policy
func (pc PolicyConfig) Build() (*policy.Policy, error) {
	p := &policy.Policy{
		Limits:              make(map[policy.Role]policy.Limit, len(pc.Limits)),
		UrgentDays:          pc.UrgentDays,
		HighDays:            pc.HighDays,
		EmergencyOperations: pc.EmergencyOperations,
	}

	for raw, value := range pc.Limits {
		role, err := policy.ParseRole(raw)
		if err != nil {
			return nil, err
		}
		limit, err := parseLimit(value)
		if err != nil {
			return nil, fmt.Errorf("limit for %s: %w", role, err)
		}
		p.Limits[role] = limit
	}

	rating, err := policy.ParseRating(pc.CeilingRating)
	if err != nil {
		return nil, err
	}
	p.CeilingRating = rating

	amounts := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"risk_analysis_threshold", pc.RiskAnalysisThreshold, &p.RiskAnalysisThreshold},
		{"critical_amount", pc.CriticalAmount, &p.CriticalAmount},
		{"high_amount", pc.HighAmount, &p.HighAmount},
		{"medium_amount", pc.MediumAmount, &p.MediumAmount},
		{"priority_amount", pc.PriorityAmount, &p.PriorityAmount},
	}
	for _, a := range amounts {
		d, err := policy.ParseAmount(a.raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.name, err)
		}
		*a.dst = d
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func parseLimit(raw string) (policy.Limit, error) {
	if strings.EqualFold(strings.TrimSpace(raw), "unlimited") {
		return policy.Unlimited(), nil
	}
	d, err := policy.ParseAmount(raw)
	if err != nil {
		return policy.Limit{}, err
	}
	return policy.Limit{Amount: d}, nil
}
