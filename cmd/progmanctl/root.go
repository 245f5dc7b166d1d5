package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"progman-api/internal/client"
	"progman-api/internal/version"
)

const (
	cfgKeyServerURL = "server_url"
	cfgKeyWSURL     = "ws_url"
	cfgKeyTimeout   = "timeout"
	cfgKeyVerbose   = "verbose"

	defaultServerURL = "http://localhost:8000/api"
)

// Global flag values.
var (
	flagConfig string
	flagJSON   bool
)

var (
	cfg    *viper.Viper
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "progmanctl",
	Short:         "Command-line client of the progress manager",
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg = v

		if cfg.GetBool(cfgKeyVerbose) {
			logger, err = zap.NewDevelopment()
		} else {
			logger = zap.NewNop()
		}
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ./progmanctl.yaml or ~/.progmanctl.yaml)")
	rootCmd.PersistentFlags().String("server", "", "API base URL including the base path (default "+defaultServerURL+")")
	rootCmd.PersistentFlags().String("ws", "", "websocket URL (default: derived from --server)")
	rootCmd.PersistentFlags().Duration("timeout", 15*time.Second, "HTTP request timeout")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log requests to stderr")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(watchCmd)
}

// loadConfig layers flags over PROGMAN_* environment variables over the config file over defaults
func loadConfig(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyServerURL, defaultServerURL)
	v.SetDefault(cfgKeyTimeout, 15*time.Second)

	v.SetEnvPrefix("progman")
	v.AutomaticEnv()

	flags := cmd.Root().PersistentFlags()
	for key, flag := range map[string]string{
		cfgKeyServerURL: "server",
		cfgKeyWSURL:     "ws",
		cfgKeyTimeout:   "timeout",
		cfgKeyVerbose:   "verbose",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return nil, err
		}
	}

	if flagConfig != "" {
		v.SetConfigFile(flagConfig)
	} else {
		v.SetConfigName("progmanctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || flagConfig != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// Defaults do not override an explicit empty flag
	if v.GetString(cfgKeyServerURL) == "" {
		v.Set(cfgKeyServerURL, defaultServerURL)
	}
	return v, nil
}

func apiClient() *client.APIClient {
	return client.NewAPIClient(cfg.GetString(cfgKeyServerURL), cfg.GetDuration(cfgKeyTimeout), logger)
}

// wsURL is ws_url, or server_url with its scheme swapped and /ws appended
func wsURL() string {
	if u := cfg.GetString(cfgKeyWSURL); u != "" {
		return u
	}
	base := strings.TrimSuffix(cfg.GetString(cfgKeyServerURL), "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws"
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}

// printJSON writes v indented to stdout
func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func deref[T any](p *T) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprint(*p)
}
