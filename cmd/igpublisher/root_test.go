package main

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangedFlagsOnlyCollectsSetFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "x", Run: func(*cobra.Command, []string) {}}
	cmd.Flags().String("addr", "", "")
	cmd.Flags().Duration("poll-timeout", 0, "")
	cmd.Flags().Bool("retry", false, "")
	cmd.Flags().String("graph-url", "", "")

	require.NoError(t, cmd.Flags().Parse([]string{"--addr", ":9000", "--poll-timeout", "90s", "--retry=false"}))

	flags := changedFlags(cmd, "addr", "poll-timeout", "retry", "graph-url", "missing")
	assert.Equal(t, map[string]interface{}{
		"addr":         ":9000",
		"poll-timeout": 90 * time.Second,
		"retry":        false,
	}, flags)
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"serve"},
		{"publish"},
		{"auth", "login"},
		{"auth", "logout"},
		{"auth", "status"},
		{"config", "init"},
		{"config", "show"},
		{"config", "validate"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestPublishRequiresImageURL(t *testing.T) {
	assert.Error(t, publishCmd.Args(publishCmd, nil))
	assert.NoError(t, publishCmd.Args(publishCmd, []string{"https://cdn.example.com/a.jpg"}))
}
