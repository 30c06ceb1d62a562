package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valkit/kit/precision"
)

// envPrefix is prepended to configuration keys to form environment variables.
const envPrefix = "KIT"

// settings holds the resolved number formatting options.
type settings struct {
	scale    int
	rounding precision.Rounding
}

// app carries the state shared by the kit commands.
type app struct {
	v       *viper.Viper
	logger  *log.Logger
	cfgFile string
	verbose bool
}

// run executes the kit command line and returns the process exit code.
func run(ctx context.Context, args []string) int {
	return execute(ctx, args, os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{
		v:      viper.New(),
		logger: log.NewWithOptions(stderr, log.Options{Prefix: "kit"}),
	}
	cmd := a.rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		a.logger.Error(err.Error())
		return 1
	}
	return 0
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "kit",
		Short:         "Fixed-point decimal arithmetic",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.verbose {
				a.logger.SetLevel(log.DebugLevel)
			}
			return a.loadConfig(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	flags.Int("scale", precision.DefaultScale, "digits after the decimal point")
	flags.String("rounding", precision.DefaultRounding.String(), "rounding rule, for example half_up or half_even")

	cmd.AddCommand(a.fixedCmd(), a.calcCmd())
	return cmd
}

// loadConfig binds flags, environment and the optional config file.
// Flags take precedence over the environment, which takes precedence over
// the config file.
func (a *app) loadConfig(cmd *cobra.Command) error {
	a.v.SetDefault("scale", precision.DefaultScale)
	a.v.SetDefault("rounding", precision.DefaultRounding.String())
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	for _, key := range []string{"scale", "rounding"} {
		if err := a.v.BindPFlag(key, cmd.Flags().Lookup(key)); err != nil {
			return fmt.Errorf("binding flag %s: %w", key, err)
		}
	}

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", a.cfgFile, err)
		}
		a.logger.Debug("loaded config", "file", a.v.ConfigFileUsed())
	}
	return nil
}

// settings returns the scale and rounding rule in effect.
func (a *app) settings() (settings, error) {
	scale := a.v.GetInt("scale")
	if scale > precision.MaxScale || scale < -precision.MaxScale {
		return settings{}, fmt.Errorf("scale %d out of range", scale)
	}
	rounding, err := precision.ParseRounding(a.v.GetString("rounding"))
	if err != nil {
		return settings{}, err
	}
	a.logger.Debug("settings", "scale", scale, "rounding", rounding)
	return settings{scale: scale, rounding: rounding}, nil
}
