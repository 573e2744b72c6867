package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/attachkit/attachkit/configuration"
	"github.com/attachkit/attachkit/internal/dcontext"

	_ "github.com/attachkit/attachkit/storage/driver/filesystem"
	_ "github.com/attachkit/attachkit/storage/driver/inmemory"
	_ "github.com/attachkit/attachkit/storage/driver/redis"
	_ "github.com/attachkit/attachkit/storage/driver/s3"
)

func init() {
	rootCmd.AddCommand(verifyCmd)
}

// rootCmd is the main command for the 'attachkit' binary.
var rootCmd = &cobra.Command{
	Use:   "attachkit",
	Short: "`attachkit` manages attachment storage backends",
	Long:  "`attachkit` manages attachment storage backends",
	Run: func(cmd *cobra.Command, args []string) {
		// nolint:errcheck
		cmd.Usage()
	},
}

// resolveConfiguration loads the yaml configuration from the path given as
// the first argument, falling back to the ATTACHKIT_CONFIGURATION_PATH
// environment variable.
func resolveConfiguration(args []string) (*configuration.Configuration, error) {
	var configurationPath string

	if len(args) > 0 {
		configurationPath = args[0]
	} else if os.Getenv("ATTACHKIT_CONFIGURATION_PATH") != "" {
		configurationPath = os.Getenv("ATTACHKIT_CONFIGURATION_PATH")
	}

	if configurationPath == "" {
		return nil, fmt.Errorf("configuration path unspecified")
	}

	fp, err := os.Open(configurationPath)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	config, err := configuration.Parse(fp)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %v", configurationPath, err)
	}

	return config, nil
}

// configureLogging sets the process log level from the configuration and
// installs the resulting logger as the context default.
func configureLogging(ctx context.Context, config *configuration.Configuration) (context.Context, error) {
	level, err := logrus.ParseLevel(string(config.Loglevel))
	if err != nil {
		return ctx, fmt.Errorf("error parsing level %q: %v", config.Loglevel, err)
	}
	logrus.SetLevel(level)

	log := logrus.StandardLogger().WithContext(ctx)
	dcontext.SetDefaultLogger(log)
	return dcontext.WithLogger(ctx, log), nil
}
