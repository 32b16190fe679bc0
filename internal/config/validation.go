package config

import (
	"fmt"
	"strings"

	"github.com/dbsmedya/layoutdiff/internal/sqlutil"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateCompiler()...)
	errors = append(errors, validateComparison("comparison", c.Comparison)...)

	for _, name := range c.ListPairs() {
		pair := c.Pairs[name]
		errors = append(errors, c.validatePair(name, &pair)...)
	}

	errors = append(errors, c.validateOutput()...)

	if c.Store.Enabled {
		errors = append(errors, c.validateStore()...)
	}

	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateCompiler() ValidationErrors {
	var errors ValidationErrors

	if c.Compiler.Binary == "" {
		errors = append(errors, ValidationError{
			Field:   "compiler.binary",
			Message: "binary is required",
		})
	}

	if c.Compiler.TimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "compiler.timeout_seconds",
			Message: "timeout_seconds cannot be negative",
		})
	}

	return errors
}

func validateComparison(prefix string, cc ComparisonConfig) ValidationErrors {
	var errors ValidationErrors

	validMember := map[string]bool{"partial": true, "all": true, "": true}
	if !validMember[cc.MemberPolicy] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".member_policy",
			Message: "member_policy must be 'partial' or 'all'",
		})
	}

	validMatch := map[string]bool{"many-to-many": true, "one-to-one": true, "": true}
	if !validMatch[cc.MatchPolicy] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".match_policy",
			Message: "match_policy must be 'many-to-many' or 'one-to-one'",
		})
	}

	validCollision := map[string]bool{"replace": true, "error": true, "": true}
	if !validCollision[cc.CollisionPolicy] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".collision_policy",
			Message: "collision_policy must be 'replace' or 'error'",
		})
	}

	return errors
}

func (c *Config) validatePair(name string, pair *PairConfig) ValidationErrors {
	var errors ValidationErrors
	prefix := fmt.Sprintf("pairs.%s", name)

	if pair.Old == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".old",
			Message: "old layout path is required",
		})
	}

	if pair.New == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".new",
			Message: "new layout path is required",
		})
	}

	if pair.Comparison != nil {
		errors = append(errors, validateComparison(prefix+".comparison", *pair.Comparison)...)
	}

	return errors
}

func (c *Config) validateOutput() ValidationErrors {
	var errors ValidationErrors

	if c.Output.CommonObjectsFile == "" {
		errors = append(errors, ValidationError{
			Field:   "output.common_objects_file",
			Message: "common_objects_file is required",
		})
	}

	if c.Output.TypesFile == "" {
		errors = append(errors, ValidationError{
			Field:   "output.types_file",
			Message: "types_file is required",
		})
	}

	if c.Output.CommonObjectsFile != "" && c.Output.CommonObjectsFile == c.Output.TypesFile {
		errors = append(errors, ValidationError{
			Field:   "output.types_file",
			Message: "types_file must differ from common_objects_file",
		})
	}

	if c.Output.Indent < 0 || c.Output.Indent > 8 {
		errors = append(errors, ValidationError{
			Field:   "output.indent",
			Message: "indent must be between 0 and 8",
		})
	}

	return errors
}

func (c *Config) validateStore() ValidationErrors {
	var errors ValidationErrors
	db := &c.Store.Connection
	prefix := "store.connection"

	if db.Host == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".host",
			Message: "host is required when store is enabled",
		})
	}

	if db.Port <= 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".port",
			Message: "port must be between 1 and 65535",
		})
	}

	if db.User == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".user",
			Message: "user is required when store is enabled",
		})
	}

	if db.Database == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".database",
			Message: "database name is required when store is enabled",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if db.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if db.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	if c.Store.Table == "" {
		errors = append(errors, ValidationError{
			Field:   "store.table",
			Message: "table is required when store is enabled",
		})
	} else if _, err := sqlutil.QuoteTableName(c.Store.Table); err != nil {
		errors = append(errors, ValidationError{
			Field:   "store.table",
			Message: err.Error(),
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
