// Package main provides stablectl, a shell for stable memory files.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/calvinalkan/stable-structures/internal/cli"
)

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	exitCode := cli.Run(os.Stdin, os.Stdout, os.Stderr, os.Args, sigCh)

	os.Exit(exitCode)
}
