// Package config resolves the server's runtime tunables from flags, env vars,
// and an optional .env file into a single Config value, grounded on
// Seednode-partybox's config.go/main.go cobra+viper wiring.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every server-level tunable named in spec.md §6 and §4.1.
// Per-lobby gameplay tunables (boardSize, gameSpeed, ...) are set per-lobby via
// models.GameSettings; these are process-wide defaults and operational knobs.
type Config struct {
	Bind               string
	Port               int
	BoardSize          int
	GameSpeed          time.Duration
	IdleTimeout        time.Duration
	LobbySweepInterval time.Duration
	Verbose            bool
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.BoardSize < 10 || c.BoardSize > 40 {
		return fmt.Errorf("invalid board-size (must be between 10-40 inclusive): %d", c.BoardSize)
	}
	return nil
}

// Addr returns the "host:port" listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// NewCommand builds the cobra entrypoint command. run is invoked once flags,
// env, and .env have all been merged into cfg and validated.
func NewCommand(cfg *Config, run func(cmd *cobra.Command, cfg *Config) error) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SNAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "snake-arena-server",
		Short:         "Authoritative server for the realtime multiplayer snake arena.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd, cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: SNAKE_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 3001, "port to listen on (env: SNAKE_PORT)")
	fs.IntVar(&cfg.BoardSize, "board-size", 20, "default board side length for new lobbies (env: SNAKE_BOARD_SIZE)")
	fs.DurationVar(&cfg.GameSpeed, "game-speed", 150*time.Millisecond, "default per-tick period for new lobbies (env: SNAKE_GAME_SPEED)")
	fs.DurationVar(&cfg.IdleTimeout, "idle-timeout", 5*time.Minute, "time since last inbound message before a session is evicted (env: SNAKE_IDLE_TIMEOUT)")
	fs.DurationVar(&cfg.LobbySweepInterval, "lobby-sweep-interval", 30*time.Second, "how often idle sessions and empty lobbies are swept (env: SNAKE_LOBBY_SWEEP_INTERVAL)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "enable debug-level logging (env: SNAKE_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true

	return cmd
}
