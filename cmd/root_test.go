package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"geocode", "isochrones", "geojson", "migrate"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "reach-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestGeocodeCommand_Flags(t *testing.T) {
	flag := geocodeCmd.Flags().Lookup("source")
	require.NotNil(t, flag, "geocode should have --source flag")
	assert.Equal(t, "db", flag.DefValue)

	require.NotNil(t, geocodeCmd.Flags().Lookup("table"), "geocode should have --table flag")
}

func TestIsochronesCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"source", "dry-run", "force"} {
		flag := isochronesCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "isochrones should have --%s flag", flagName)
	}
}

func TestGeojsonCommand_HasSubcommands(t *testing.T) {
	cmds := geojsonCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"validate", "bbox", "midpoint", "merge"}
	for _, name := range expected {
		assert.True(t, names[name], "geojson should have subcommand %q", name)
	}
}
