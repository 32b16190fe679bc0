package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommandStructure(t *testing.T) {
	assert.NotNil(t, validateCmd)
	assert.Equal(t, "validate", validateCmd.Use)
	assert.NotEmpty(t, validateCmd.Short)
	assert.Contains(t, validateCmd.Short, "Validate")
	assert.NotNil(t, validateCmd.RunE)
}

func TestValidateCommandChecks(t *testing.T) {
	doc := validateCmd.Long
	assert.Contains(t, doc, "Checks performed")
	assert.Contains(t, doc, "Configuration")
	assert.Contains(t, doc, "Comparison policies")
	assert.Contains(t, doc, "Store connectivity")
	assert.Contains(t, doc, "layoutdiff validate")
}

func TestValidateCommandNoPairFlag(t *testing.T) {
	// Validate covers every pair, not a selection.
	assert.Nil(t, validateCmd.Flags().Lookup("pair"))
}

func TestRunValidate(t *testing.T) {
	dir := t.TempDir()
	oldPath, newPath := writeLayouts(t, dir)
	withConfig(t, "logging:\n  level: error\npairs:\n  vault:\n    old: "+oldPath+"\n    new: "+newPath+"\n")

	var buf bytes.Buffer
	setOutputWriter(&buf)
	defer resetOutputWriter()

	require.NoError(t, runValidate(validateCmd, nil))
	assert.Contains(t, buf.String(), "Pairs found: 1")
	assert.Contains(t, buf.String(), "--- Pair: vault ---")
	assert.Contains(t, buf.String(), "Validation Complete")
}

func TestRunValidateMissingLayout(t *testing.T) {
	dir := t.TempDir()
	oldPath, _ := writeLayouts(t, dir)
	missing := filepath.Join(dir, "gone.json")
	require.NoFileExists(t, missing)
	withConfig(t, "logging:\n  level: error\npairs:\n  vault:\n    old: "+oldPath+"\n    new: "+missing+"\n")

	var buf bytes.Buffer
	setOutputWriter(&buf)
	defer resetOutputWriter()

	err := runValidate(validateCmd, nil)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "FAILED")
	_, statErr := os.Stat(missing)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunValidateInvalidConfig(t *testing.T) {
	withConfig(t, "comparison:\n  member_policy: most\n")

	err := runValidate(validateCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "comparison.member_policy")
}
