package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"progman-api/internal/dto"
)

func TestWSURL(t *testing.T) {
	tests := []struct {
		name   string
		server string
		ws     string
		want   string
	}{
		{"derived from http", "http://localhost:8000/api", "", "ws://localhost:8000/api/ws"},
		{"derived from https with slash", "https://pm.example.com/api/", "", "wss://pm.example.com/api/ws"},
		{"explicit wins", "http://localhost:8000/api", "ws://other:9000/ws", "ws://other:9000/ws"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg = viper.New()
			cfg.Set(cfgKeyServerURL, tt.server)
			cfg.Set(cfgKeyWSURL, tt.ws)
			assert.Equal(t, tt.want, wsURL())
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	for _, bad := range []string{"0", "-1", "abc", ""} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
}

func newSetCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "set"}
	addScheduleSetFlags(cmd)
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestUpdateRequestFromFlags(t *testing.T) {
	t.Run("success: only given flags are set", func(t *testing.T) {
		cmd := newSetCmd(t, "--start", "2024-01-10", "--duration", "5")
		req, err := updateRequestFromFlags(cmd)
		require.NoError(t, err)

		assert.Equal(t, dto.Some("2024-01-10"), req.StartDate)
		assert.Equal(t, dto.Some(5), req.Duration)
		assert.False(t, req.Owner.Set)
		assert.False(t, req.Progress.Set)
	})

	t.Run("success: empty string clears", func(t *testing.T) {
		cmd := newSetCmd(t, "--owner", "")
		req, err := updateRequestFromFlags(cmd)
		require.NoError(t, err)
		assert.True(t, req.Owner.Set)
		assert.Nil(t, req.Owner.Value)
	})

	t.Run("failure: malformed date", func(t *testing.T) {
		cmd := newSetCmd(t, "--start", "01/10/2024")
		_, err := updateRequestFromFlags(cmd)
		assert.Error(t, err)
	})
}
