// Package config provides configuration structures and loading for layoutdiff.
package config

// Config represents the complete application configuration.
type Config struct {
	Compiler   CompilerConfig        `yaml:"compiler" mapstructure:"compiler"`
	Comparison ComparisonConfig      `yaml:"comparison" mapstructure:"comparison"`
	Discovery  DiscoveryConfig       `yaml:"discovery" mapstructure:"discovery"`
	Pairs      map[string]PairConfig `yaml:"pairs" mapstructure:"pairs"`
	Output     OutputConfig          `yaml:"output" mapstructure:"output"`
	Store      StoreConfig           `yaml:"store" mapstructure:"store"`
	Logging    LoggingConfig         `yaml:"logging" mapstructure:"logging"`
}

// CompilerConfig controls how layouts are obtained from Solidity sources.
type CompilerConfig struct {
	Binary         string   `yaml:"binary" mapstructure:"binary"`
	Args           []string `yaml:"args" mapstructure:"args"` // extra arguments placed before the source file
	TimeoutSeconds int      `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// ComparisonConfig selects the matching policies of a comparison.
type ComparisonConfig struct {
	MemberPolicy    string `yaml:"member_policy" mapstructure:"member_policy"`       // partial or all
	MatchPolicy     string `yaml:"match_policy" mapstructure:"match_policy"`         // many-to-many or one-to-one
	CollisionPolicy string `yaml:"collision_policy" mapstructure:"collision_policy"` // replace or error
}

// DiscoveryConfig describes a directory tree of version pairs: every
// subdirectory of Root holding both OldFile and NewFile is one pair.
type DiscoveryConfig struct {
	Root    string `yaml:"root" mapstructure:"root"`
	OldFile string `yaml:"old_file" mapstructure:"old_file"`
	NewFile string `yaml:"new_file" mapstructure:"new_file"`
}

// PairConfig is an explicitly configured old/new version pair.
type PairConfig struct {
	Old        string            `yaml:"old" mapstructure:"old"`
	New        string            `yaml:"new" mapstructure:"new"`
	OutputDir  string            `yaml:"output_dir" mapstructure:"output_dir"` // defaults to the directory of Old
	Contract   string            `yaml:"contract" mapstructure:"contract"`     // contract to pick from multi-contract compiler output
	Comparison *ComparisonConfig `yaml:"comparison,omitempty" mapstructure:"comparison"`
}

// OutputConfig names and formats the emitted records.
type OutputConfig struct {
	CommonObjectsFile string `yaml:"common_objects_file" mapstructure:"common_objects_file"`
	TypesFile         string `yaml:"types_file" mapstructure:"types_file"`
	Indent            int    `yaml:"indent" mapstructure:"indent"`
}

// StoreConfig enables persisting comparison results to MySQL.
type StoreConfig struct {
	Enabled            bool           `yaml:"enabled" mapstructure:"enabled"`
	Connection         DatabaseConfig `yaml:"connection" mapstructure:"connection"`
	Table              string         `yaml:"table" mapstructure:"table"`
	LockTimeoutSeconds int            `yaml:"lock_timeout_seconds" mapstructure:"lock_timeout_seconds"`
}

// DatabaseConfig represents a MySQL database connection configuration.
type DatabaseConfig struct {
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Compiler: CompilerConfig{
			Binary:         "solc",
			TimeoutSeconds: 120,
		},
		Comparison: ComparisonConfig{
			MemberPolicy:    "partial",
			MatchPolicy:     "many-to-many",
			CollisionPolicy: "replace",
		},
		Discovery: DiscoveryConfig{
			OldFile: "Old.sol",
			NewFile: "New.sol",
		},
		Output: OutputConfig{
			CommonObjectsFile: "storage_reorg_info.json",
			TypesFile:         "data_types.json",
			Indent:            2,
		},
		Store: StoreConfig{
			Enabled: false,
			Connection: DatabaseConfig{
				Port:               3306,
				TLS:                "preferred",
				MaxConnections:     5,
				MaxIdleConnections: 2,
			},
			Table:              "layoutdiff_runs",
			LockTimeoutSeconds: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// GetPair retrieves a configured pair by name.
func (c *Config) GetPair(name string) (*PairConfig, bool) {
	pair, exists := c.Pairs[name]
	if !exists {
		return nil, false
	}
	return &pair, true
}

// GetPairComparison returns the comparison config for a pair by name,
// falling back to global if not set.
func (c *Config) GetPairComparison(name string) ComparisonConfig {
	pair, ok := c.GetPair(name)
	if !ok {
		return c.Comparison
	}
	return pair.GetPairComparison(c.Comparison)
}

// GetPairComparison returns the comparison config for a pair, falling back
// to global values for fields the pair leaves empty.
func (pc *PairConfig) GetPairComparison(global ComparisonConfig) ComparisonConfig {
	if pc.Comparison == nil {
		return global
	}

	return pc.Comparison.over(global)
}
