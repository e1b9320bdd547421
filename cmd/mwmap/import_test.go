package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateImportFlags(t *testing.T) {
	assert.Error(t, validateImportFlags("", false))
	assert.Error(t, validateImportFlags("  ", false))
	assert.NoError(t, validateImportFlags("", true))
	assert.NoError(t, validateImportFlags("site_1700000000000", false))
}

func TestImportCmd_RunE_NoSite(t *testing.T) {
	importSite, importDryRun = "", false
	t.Cleanup(func() { importSite, importDryRun = "", false })

	err := importCmd.RunE(importCmd, []string{"does-not-exist.kml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--site is required")
}
