package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from the specified file path.
// It supports YAML files and performs environment variable substitution.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper creates a Config from an existing Viper instance.
// Useful for testing or when Viper is configured externally.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	substituteEnvVars(cfg)

	return cfg, nil
}

// LoadOrDefault loads configPath when it exists and returns defaults otherwise.
// An explicitly requested file that is missing is still an error.
func LoadOrDefault(configPath string, explicit bool) (*Config, error) {
	if _, err := os.Stat(configPath); err != nil {
		if os.IsNotExist(err) && !explicit {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Load(configPath)
}

// envVarPattern matches ${VAR_NAME} or $VAR_NAME patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func substituteEnvVars(cfg *Config) {
	cfg.Compiler.Binary = expandEnvVar(cfg.Compiler.Binary)
	for i, arg := range cfg.Compiler.Args {
		cfg.Compiler.Args[i] = expandEnvVar(arg)
	}

	cfg.Discovery.Root = expandEnvVar(cfg.Discovery.Root)

	for name, pair := range cfg.Pairs {
		pair.Old = expandEnvVar(pair.Old)
		pair.New = expandEnvVar(pair.New)
		pair.OutputDir = expandEnvVar(pair.OutputDir)
		cfg.Pairs[name] = pair
	}

	cfg.Store.Connection.Host = expandEnvVar(cfg.Store.Connection.Host)
	cfg.Store.Connection.User = expandEnvVar(cfg.Store.Connection.User)
	cfg.Store.Connection.Password = expandEnvVar(cfg.Store.Connection.Password)
	cfg.Store.Connection.Database = expandEnvVar(cfg.Store.Connection.Database)

	cfg.Logging.Output = expandEnvVar(cfg.Logging.Output)
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Return original if env var not found
		return match
	})
}

// ListPairs returns all configured pair names in sorted order.
func (c *Config) ListPairs() []string {
	names := make([]string, 0, len(c.Pairs))
	for name := range c.Pairs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyOverrides applies CLI flag overrides to the configuration.
// Only non-empty values are applied. Comparison overrides also replace
// pair-specific settings, so flags win over the file everywhere.
func (c *Config) ApplyOverrides(logLevel, logFormat, memberPolicy, matchPolicy, collisionPolicy string) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat != "" {
		c.Logging.Format = logFormat
	}

	override := ComparisonConfig{
		MemberPolicy:    memberPolicy,
		MatchPolicy:     matchPolicy,
		CollisionPolicy: collisionPolicy,
	}
	c.Comparison = override.over(c.Comparison)
	for name, pair := range c.Pairs {
		if pair.Comparison != nil {
			merged := override.over(*pair.Comparison)
			pair.Comparison = &merged
			c.Pairs[name] = pair
		}
	}
}

// over returns base with every non-empty field of o applied on top.
func (o ComparisonConfig) over(base ComparisonConfig) ComparisonConfig {
	if o.MemberPolicy != "" {
		base.MemberPolicy = o.MemberPolicy
	}
	if o.MatchPolicy != "" {
		base.MatchPolicy = o.MatchPolicy
	}
	if o.CollisionPolicy != "" {
		base.CollisionPolicy = o.CollisionPolicy
	}
	return base
}
