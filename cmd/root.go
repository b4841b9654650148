// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/abspos/internal/config"
	"github.com/xkilldash9x/abspos/internal/observability"
)

type contextKey string

// configKey stores the loaded config.Interface in the command context.
const configKey contextKey = "config"

// NewRootCommand builds the command tree. Each call returns an independent
// tree so tests never share flag state.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:           "abspos",
		Short:         "abspos lays out absolutely positioned boxes and reports their geometry.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if cfgFile != "" {
				v.SetConfigFile(cfgFile)
			} else {
				v.AddConfigPath(".")
				v.SetConfigName("config")
				v.SetConfigType("yaml")
			}
			if err := v.ReadInConfig(); err != nil {
				var notFound viper.ConfigFileNotFoundError
				if !errors.As(err, &notFound) {
					return fmt.Errorf("error reading config file: %w", err)
				}
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				return err
			}
			applyFlagOverrides(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Configuration loaded",
				zap.String("version", Version),
				zap.String("config_file", v.ConfigFileUsed()))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, config.Interface(cfg)))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().Float64("viewport-width", 0, "width of the initial containing block (overrides layout.viewport_width)")
	rootCmd.PersistentFlags().Float64("viewport-height", 0, "height of the initial containing block (overrides layout.viewport_height)")
	rootCmd.PersistentFlags().String("direction", "", `root direction, "ltr" or "rtl" (overrides layout.direction)`)
	rootCmd.PersistentFlags().Duration("script-timeout", 0, "wall-clock limit for each script run (overrides script.timeout)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newLayoutCmd(), newRunCmd(), newVersionCmd())
	return rootCmd
}

// applyFlagOverrides copies explicitly set persistent flags over the values
// loaded from the file and environment.
func applyFlagOverrides(cmd *cobra.Command, cfg config.Interface) {
	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	if changed("viewport-width") || changed("viewport-height") {
		width, height := cfg.Layout().ViewportWidth, cfg.Layout().ViewportHeight
		if changed("viewport-width") {
			width, _ = flags.GetFloat64("viewport-width")
		}
		if changed("viewport-height") {
			height, _ = flags.GetFloat64("viewport-height")
		}
		cfg.SetLayoutViewport(width, height)
	}
	if changed("direction") {
		dir, _ := flags.GetString("direction")
		cfg.SetLayoutDirection(dir)
	}
	if changed("script-timeout") {
		timeout, _ := flags.GetDuration("script-timeout")
		cfg.SetScriptTimeout(timeout)
	}
}

// Execute runs the command tree with ctx and flushes the logger on return.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
	}
	observability.Sync()
	return err
}

// getConfigFromContext returns the config stored by PersistentPreRunE.
func getConfigFromContext(ctx context.Context) (config.Interface, error) {
	cfg, ok := ctx.Value(configKey).(config.Interface)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("configuration not found in command context")
	}
	return cfg, nil
}
