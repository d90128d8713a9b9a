package main

import (
	"errors"
	"os"

	"github.com/grovetools/notify/cli"
	"github.com/grovetools/notify/cmd"
)

func main() {
	rootCmd := cmd.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, cmd.ErrSilentExit) {
			verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
			cli.NewErrorHandler(verbose).Handle(err)
		}
		os.Exit(1)
	}
}
