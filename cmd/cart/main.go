package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type rootCmdConfig struct {
	logger
	verbose    bool
	configFile string
	ctx        context.Context
	cancelFunc context.CancelFunc
}

func main() {
	if err := cliParser().Execute(); err != nil {
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	config := &rootCmdConfig{}
	rootCmd := &cobra.Command{
		Use:   "cart",
		Short: "cart is a tool to grow classification trees",
		Long:  `A tool to grow classification trees from your data with the CART algorithm, test them, and use them to make predictions`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			err := config.bindConfig(cmd)
			if err != nil {
				return err
			}
			config.logger = newLogger(config.verbose)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if config.cancelFunc != nil {
				config.cancelFunc()
			}
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&(config.verbose), "verbose", "v", false, "log progress on STDERR")
	rootCmd.PersistentFlags().StringVar(&(config.configFile), "config", "", "path to a YML file with values for any flag (flags can also be set with CART_<FLAG> environment variables)")
	rootCmd.AddCommand(
		versionCmd(),
		growCmd(config),
		workCmd(config),
		testCmd(config),
		predictCmd(config),
		splitCmd(config),
		showCmd(config),
		dotCmd(config),
	)
	return rootCmd
}

// bindConfig sets the flags of cmd that were not given on the command
// line from CART_ environment variables or, failing those, the config
// file.
func (rcc *rootCmdConfig) bindConfig(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix("CART")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if rcc.configFile != "" {
		v.SetConfigFile(rcc.configFile)
		v.SetConfigType("yml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", rcc.configFile, err)
		}
	}
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed || f.Name == "config" || !v.IsSet(f.Name) {
			return
		}
		if serr := cmd.Flags().Set(f.Name, v.GetString(f.Name)); serr != nil {
			err = fmt.Errorf("setting flag %s from config: %w", f.Name, serr)
		}
	})
	return err
}
