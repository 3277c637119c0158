package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/balkashynov/defectctl/internal/commands"
	"github.com/balkashynov/defectctl/internal/httpclient"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersion(version, commit, date)
	if err := commands.Execute(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", httpclient.Describe(err))
		os.Exit(1)
	}
}
