package config

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_RejectsOutOfRangePort(t *testing.T) {
	cfg := &Config{Port: 0, BoardSize: 20}
	assert.Error(t, cfg.validate())

	cfg.Port = 70000
	assert.Error(t, cfg.validate())

	cfg.Port = 3001
	assert.NoError(t, cfg.validate())
}

func TestValidate_RejectsOutOfRangeBoardSize(t *testing.T) {
	cfg := &Config{Port: 3001, BoardSize: 5}
	assert.Error(t, cfg.validate())

	cfg.BoardSize = 41
	assert.Error(t, cfg.validate())
}

func TestAddr_JoinsBindAndPort(t *testing.T) {
	cfg := &Config{Bind: "127.0.0.1", Port: 3001}
	assert.Equal(t, "127.0.0.1:3001", cfg.Addr())
}

func TestNewCommand_AppliesDefaultsAndRuns(t *testing.T) {
	cfg := &Config{}
	var ran bool
	var seenBoardSize int

	cmd := NewCommand(cfg, func(cmd *cobra.Command, c *Config) error {
		ran = true
		seenBoardSize = c.BoardSize
		return nil
	})
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.True(t, ran)
	assert.Equal(t, 20, seenBoardSize, "board-size default should be applied")
	assert.Equal(t, "0.0.0.0", cfg.Bind)
	assert.Equal(t, 3001, cfg.Port)
}

func TestNewCommand_FlagOverridesDefault(t *testing.T) {
	cfg := &Config{}
	cmd := NewCommand(cfg, func(cmd *cobra.Command, c *Config) error { return nil })
	cmd.SetArgs([]string{"--port", "9999", "--board-size", "30"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, 30, cfg.BoardSize)
}

func TestNewCommand_RejectsInvalidPort(t *testing.T) {
	cfg := &Config{}
	cmd := NewCommand(cfg, func(cmd *cobra.Command, c *Config) error { return nil })
	cmd.SetArgs([]string{"--port", "0"})

	assert.Error(t, cmd.Execute())
}
