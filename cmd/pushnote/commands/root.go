// Copyright © 2019 Niko Carpenter <nikoacarpenter@gmail.com>
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

package commands

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/fsnotify/fsnotify"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/n0ot/pushnote/pkg/client"
)

var (
	cfgDir string
	log    = logrus.New()
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "pushnote",
	Short: "Push notifications over server-sent events or WebSockets",
	Long: `pushnote relays notifications to users.

It can run the relay, listen for a user's notifications over
server-sent events and WebSockets, send notifications, and print relay stats.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	DisableAutoGenTag: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "config directory (default is $HOME/.config/pushnote)")
	RootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	viper.BindPFlag("log.level", RootCmd.PersistentFlags().Lookup("log-level"))

	log.Out = os.Stderr
	log.Formatter = new(logrus.TextFormatter)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgDir == "" {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// Search for config in $HOME/.config/pushnote
		cfgDir = path.Join(home, ".config", "pushnote")
	}

	viper.AddConfigPath(cfgDir)
	viper.SetConfigName("pushnote")
	viper.SetEnvPrefix("PUSHNOTE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	os.Setenv("CONFDIR", cfgDir)

	// A missing config file is fine; the defaults will do.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error loading config file: %s\n", err)
			os.Exit(1)
		}
	} else {
		viper.OnConfigChange(func(e fsnotify.Event) {
			log.WithField("file", e.Name).Info("Config changed")
			applyLogLevel()
		})
		viper.WatchConfig()
	}
	applyLogLevel()
}

// applyLogLevel sets the log level from the config.
func applyLogLevel() {
	level, err := logrus.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		log.WithError(err).Warn("Invalid log level; keeping the current one")
		return
	}
	log.SetLevel(level)
}

// addURLFlag adds a --url flag to cmd, bound to client.url when cmd runs.
// Several commands share the key, so it can't be bound at init.
func addURLFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("url", "u", client.DefaultConfig().BaseURL, "URL of the relay")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		viper.BindPFlag("client.url", cmd.Flags().Lookup("url"))
	}
}
