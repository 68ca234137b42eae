// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bureau-foundation/calliope/cmd/skyctl/surface"
)

func main() {
	if err := run(); err != nil {
		// Errors the CLI already reported carry only an exit code.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }
func (e exitError) ExitCode() int { return int(e) }

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli, err := surface.New(surface.Options{
		ConfigFile: configFile(),
		LogsDir:    logsDir(),
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	})
	if err != nil {
		return err
	}
	defer cli.Close()

	code, err := cli.Run(ctx, os.Args[1:])
	if err != nil {
		return err
	}
	if code != 0 {
		return exitError(code)
	}
	return nil
}

// configFile is $SKYCTL_CONFIG, or config.json in the user config
// directory.
func configFile() string {
	if path := os.Getenv("SKYCTL_CONFIG"); path != "" {
		return path
	}
	directory, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(directory, "skyctl", "config.json")
}

// logsDir is $SKYCTL_LOGS_DIR, or logs/ in the user cache directory.
func logsDir() string {
	if path := os.Getenv("SKYCTL_LOGS_DIR"); path != "" {
		return path
	}
	directory, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(directory, "skyctl", "logs")
}
