package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/attachkit/attachkit/internal/dcontext"
	"github.com/attachkit/attachkit/internal/uuid"
	storagedriver "github.com/attachkit/attachkit/storage/driver"
	"github.com/spf13/cobra"
)

// verifyCmd is the cobra command that corresponds to the verify subcommand
var verifyCmd = &cobra.Command{
	Use:   "verify <config>",
	Short: "`verify` round-trips a probe object through every configured storage backend",
	Long:  "`verify` round-trips a probe object through every configured storage backend",
	Run: func(cmd *cobra.Command, args []string) {
		config, err := resolveConfiguration(args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
			// nolint:errcheck
			cmd.Usage()
			os.Exit(1)
		}

		ctx := context.Background()
		ctx, err = configureLogging(ctx, config)
		if err != nil {
			fmt.Fprintf(os.Stderr, "unable to configure logging with config: %s\n", err)
			os.Exit(1)
		}

		registry, err := config.BuildRegistry()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to construct storage registry: %v\n", err)
			os.Exit(1)
		}

		for _, key := range registry.Keys() {
			driver, err := registry.Driver(key)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				os.Exit(1)
			}
			if err := verifyStorage(ctx, driver); err != nil {
				fmt.Fprintf(os.Stderr, "storage %q failed verification: %v\n", key, err)
				os.Exit(1)
			}
			dcontext.GetLoggerWithField(ctx, "storage", key).Infof("%s driver verified", driver.Name())
		}
	},
}

// verifyStorage writes a probe object, reads it back, and deletes it again,
// confirming the driver is usable end to end.
func verifyStorage(ctx context.Context, driver storagedriver.StorageDriver) error {
	id := "attachkit-verify/" + uuid.NewString()
	contents := []byte("attachkit storage verification probe")

	if err := driver.PutContent(ctx, id, contents); err != nil {
		return fmt.Errorf("write: %v", err)
	}

	read, err := driver.GetContent(ctx, id)
	if err != nil {
		return fmt.Errorf("read: %v", err)
	}
	if !bytes.Equal(read, contents) {
		return fmt.Errorf("read back %d bytes, wrote %d", len(read), len(contents))
	}

	if _, err := driver.Stat(ctx, id); err != nil {
		return fmt.Errorf("stat: %v", err)
	}

	if err := driver.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete: %v", err)
	}

	exists, err := storagedriver.Exists(ctx, driver, id)
	if err != nil {
		return fmt.Errorf("exists: %v", err)
	}
	if exists {
		return fmt.Errorf("probe object survived deletion")
	}
	return nil
}
