package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/chatscribe/internal/config"
	"github.com/xkilldash9x/chatscribe/internal/observability"
)

// app carries the state PersistentPreRunE prepares for every subcommand.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

// NewRootCmd builds the command tree. Each call returns an independent tree
// with its own viper instance.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	config.SetDefaults(a.v)

	rootCmd := &cobra.Command{
		Use:     "chatscribe",
		Short:   "chatscribe copies a web chat transcript by reading every message's raw text through its edit box.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initializeConfig(a.v, a.cfgFile); err != nil {
				return err
			}
			cfg, err := config.NewConfigFromViper(a.v)
			if err != nil {
				observability.Initialize(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "chatscribe"},
					zapcore.Lock(zapcore.AddSync(cmd.ErrOrStderr())))
				return fmt.Errorf("failed to load or validate config: %w", err)
			}
			a.cfg = cfg

			observability.Initialize(cfg.Logger, zapcore.Lock(zapcore.AddSync(cmd.ErrOrStderr())))
			a.logger = observability.GetLogger()
			a.logger.Debug("Starting chatscribe", zap.String("version", Version), zap.String("config", a.v.ConfigFileUsed()))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./config.yaml, then ~/.chatscribe/config.yaml)")
	rootCmd.PersistentFlags().String("profile", "", "selector/timing profile (overrides extract.profile)")
	rootCmd.PersistentFlags().Bool("headless", false, "launch Chrome without a window (overrides browser.headless)")
	rootCmd.PersistentFlags().String("remote-url", "", "attach to a running Chrome debugger endpoint (overrides browser.remote_url)")
	bindFlag(a.v, "extract.profile", rootCmd.PersistentFlags().Lookup("profile"))
	bindFlag(a.v, "browser.headless", rootCmd.PersistentFlags().Lookup("headless"))
	bindFlag(a.v, "browser.remote_url", rootCmd.PersistentFlags().Lookup("remote-url"))
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(
		newExtractCmd(a),
		newHighlightCmd(a),
		newWatchCmd(a),
		newProfilesCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command tree with a context cancelled on SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	observability.Sync()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Interrupted.")
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// bindFlag binds a flag to a config key so it overrides file and env values.
func bindFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", flag.Name, err))
	}
}

// initializeConfig reads the config file, if any, and environment variables.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		path, err := homedir.Expand(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to expand config path: %w", err)
		}
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".chatscribe"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("CHATSCRIBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}
