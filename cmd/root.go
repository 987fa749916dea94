package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/w3automaton/internal/config"
	"github.com/xkilldash9x/w3automaton/internal/observability"
)

const (
	defaultConfigFile = "config.json"
	envPrefix         = "W3A"
)

type contextKey string

const configKey contextKey = "config"

var (
	cfgFile string

	// fatal reports configuration failures. Swapped out in tests.
	fatal = observability.Fatal
)

// NewRootCommand builds the w3automaton command tree.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "w3automaton",
		Short:         "w3automaton drives a web browser through scripted, wait-guarded steps.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}

			if err := observability.InitializeLogger(cfg.Logger()); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			observability.GetLogger().Debug("Configuration loaded.",
				zap.String("version", Version),
				zap.String("config", v.ConfigFileUsed()),
				zap.String("browser", cfg.Browser().Name),
				zap.String("engine", cfg.Browser().Engine),
			)

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigFile, "JSON configuration file")
	cmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
		observability.Sync()
	}
	return err
}

// loadConfig reads the configuration and terminates through the fatal handler
// when it cannot be read or fails validation.
func loadConfig(cmd *cobra.Command, v *viper.Viper) (*config.Config, error) {
	cfg, err := readConfig(cmd, v)
	if err != nil {
		// The configured logger does not exist yet.
		_ = observability.InitializeLogger(config.NewDefaultConfig().Logger())
		fatal(observability.GetLogger(), err, false)
		return nil, err
	}
	return cfg, nil
}

func readConfig(cmd *cobra.Command, v *viper.Viper) (*config.Config, error) {
	if err := initializeConfig(cmd, v); err != nil {
		return nil, err
	}
	return config.NewConfigFromViper(v)
}

// initializeConfig points v at the config file and environment. A missing
// default config file falls back to defaults; a missing explicit one is an
// error.
func initializeConfig(cmd *cobra.Command, v *viper.Viper) error {
	path := cfgFile
	if path == "" {
		path = defaultConfigFile
	}
	v.SetConfigFile(config.ExpandPath(path))
	v.SetConfigType("json")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
		if missing && !cmd.Flags().Changed("config") {
			return nil
		}
		return fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return nil
}

// configFromContext returns the configuration stored by PersistentPreRunE.
func configFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}
