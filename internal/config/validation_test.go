package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Pairs = map[string]PairConfig{
		"token": {Old: "token/Old.sol", New: "token/New.sol"},
	}
	return cfg
}

func TestValidConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("expected no validation errors, got: %v", err)
	}
}

func TestValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
		field  string
	}{
		{
			name:   "missing compiler binary",
			mutate: func(cfg *Config) { cfg.Compiler.Binary = "" },
			field:  "compiler.binary",
		},
		{
			name:   "negative compiler timeout",
			mutate: func(cfg *Config) { cfg.Compiler.TimeoutSeconds = -1 },
			field:  "compiler.timeout_seconds",
		},
		{
			name:   "invalid member policy",
			mutate: func(cfg *Config) { cfg.Comparison.MemberPolicy = "some" },
			field:  "comparison.member_policy",
		},
		{
			name:   "invalid match policy",
			mutate: func(cfg *Config) { cfg.Comparison.MatchPolicy = "first" },
			field:  "comparison.match_policy",
		},
		{
			name:   "invalid collision policy",
			mutate: func(cfg *Config) { cfg.Comparison.CollisionPolicy = "ignore" },
			field:  "comparison.collision_policy",
		},
		{
			name: "pair without old",
			mutate: func(cfg *Config) {
				cfg.Pairs["broken"] = PairConfig{New: "x/New.sol"}
			},
			field: "pairs.broken.old",
		},
		{
			name: "pair without new",
			mutate: func(cfg *Config) {
				cfg.Pairs["broken"] = PairConfig{Old: "x/Old.sol"}
			},
			field: "pairs.broken.new",
		},
		{
			name: "pair with invalid comparison",
			mutate: func(cfg *Config) {
				cfg.Pairs["broken"] = PairConfig{
					Old:        "x/Old.sol",
					New:        "x/New.sol",
					Comparison: &ComparisonConfig{MatchPolicy: "random"},
				}
			},
			field: "pairs.broken.comparison.match_policy",
		},
		{
			name:   "missing common objects file",
			mutate: func(cfg *Config) { cfg.Output.CommonObjectsFile = "" },
			field:  "output.common_objects_file",
		},
		{
			name:   "same output files",
			mutate: func(cfg *Config) { cfg.Output.TypesFile = cfg.Output.CommonObjectsFile },
			field:  "output.types_file",
		},
		{
			name:   "negative indent",
			mutate: func(cfg *Config) { cfg.Output.Indent = -2 },
			field:  "output.indent",
		},
		{
			name:   "store without host",
			mutate: func(cfg *Config) { enableStore(cfg); cfg.Store.Connection.Host = "" },
			field:  "store.connection.host",
		},
		{
			name:   "store with invalid port",
			mutate: func(cfg *Config) { enableStore(cfg); cfg.Store.Connection.Port = 70000 },
			field:  "store.connection.port",
		},
		{
			name:   "store with invalid tls",
			mutate: func(cfg *Config) { enableStore(cfg); cfg.Store.Connection.TLS = "maybe" },
			field:  "store.connection.tls",
		},
		{
			name:   "store without table",
			mutate: func(cfg *Config) { enableStore(cfg); cfg.Store.Table = "" },
			field:  "store.table",
		},
		{
			name:   "store with unsafe table name",
			mutate: func(cfg *Config) { enableStore(cfg); cfg.Store.Table = "runs; DROP TABLE x" },
			field:  "store.table",
		},
		{
			name:   "invalid logging level",
			mutate: func(cfg *Config) { cfg.Logging.Level = "verbose" },
			field:  "logging.level",
		},
		{
			name:   "invalid logging format",
			mutate: func(cfg *Config) { cfg.Logging.Format = "xml" },
			field:  "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}

			verrs, ok := err.(ValidationErrors)
			if !ok {
				t.Fatalf("expected ValidationErrors, got %T", err)
			}

			found := false
			for _, e := range verrs {
				if e.Field == tt.field {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected error on field %s, got: %v", tt.field, err)
			}
		})
	}
}

func TestStoreIgnoredWhenDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Connection.Host = ""
	cfg.Store.Table = ""

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected disabled store to skip validation, got: %v", err)
	}
}

func TestValidStore(t *testing.T) {
	cfg := validConfig()
	enableStore(cfg)

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid store config, got: %v", err)
	}
}

func TestValidationErrorsFormat(t *testing.T) {
	errs := ValidationErrors{
		{Field: "field1", Message: "error1"},
		{Field: "field2", Message: "error2"},
	}

	errStr := errs.Error()
	if !strings.Contains(errStr, "field1: error1") {
		t.Errorf("expected error string to contain 'field1: error1', got: %s", errStr)
	}
	if !strings.Contains(errStr, "field2: error2") {
		t.Errorf("expected error string to contain 'field2: error2', got: %s", errStr)
	}

	if (ValidationErrors{}).Error() != "" {
		t.Error("expected empty string for no errors")
	}
}

func enableStore(cfg *Config) {
	cfg.Store.Enabled = true
	cfg.Store.Connection.Host = "localhost"
	cfg.Store.Connection.User = "root"
	cfg.Store.Connection.Database = "audits"
}
