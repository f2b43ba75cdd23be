// Command hlssafed runs the hlssafe daemon in the foreground. It is
// equivalent to "hlssafe daemon" and exists for service managers that expect
// a dedicated binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"hlssafe/internal/config"
	"hlssafe/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	logLevel := flag.String("log-level", "", "Override [logging] level")
	flag.Parse()

	if err := run(context.Background(), *configPath, *logLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, logLevel string) error {
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	err = daemonrun.Run(ctx, cfg, daemonrun.Options{LogLevel: logLevel})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
