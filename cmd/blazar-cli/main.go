package main

import (
	"errors"
	"os"

	"github.com/yndnr/blazar-go/internal/cli/command"
)

func main() {
	if err := command.App().Run(os.Args); err != nil {
		if !errors.Is(err, command.ErrErrorReply) {
			command.PrintError(os.Stderr, "%v", err)
		}
		os.Exit(1)
	}
}
