// Package sqlutil quotes and validates MySQL identifiers used by the result store.
package sqlutil

import (
	"regexp"
	"strings"
)

// MaxIdentifierLength is the MySQL limit for table and schema names.
const MaxIdentifierLength = 64

// QuoteIdentifier quotes a MySQL identifier with backticks, doubling any
// embedded backtick.
// Example: "my`table" -> "`my``table`"
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Restricted to alphanumeric and underscore; MySQL allows more.
var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z0-9_]+$")

// IsValidIdentifier checks that name is non-empty, within the MySQL length
// limit and made of alphanumeric characters and underscores only.
func IsValidIdentifier(name string) bool {
	return len(name) <= MaxIdentifierLength && validIdentifierRegex.MatchString(name)
}

// QuoteIdentifierSafe quotes a MySQL identifier after validating it.
func QuoteIdentifierSafe(name string) (string, error) {
	if !IsValidIdentifier(name) {
		return "", &InvalidIdentifierError{Name: name}
	}
	return QuoteIdentifier(name), nil
}

// QuoteTableName validates and quotes a table name that may be qualified
// with a schema ("schema.table").
func QuoteTableName(name string) (string, error) {
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return "", &InvalidIdentifierError{Name: name}
	}

	quoted := make([]string, 0, len(parts))
	for _, part := range parts {
		q, err := QuoteIdentifierSafe(part)
		if err != nil {
			return "", &InvalidIdentifierError{Name: name}
		}
		quoted = append(quoted, q)
	}
	return strings.Join(quoted, "."), nil
}

// InvalidIdentifierError is returned when an identifier contains invalid characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must be 1-64 alphanumeric characters or underscores)"
}
