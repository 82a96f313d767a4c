package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/lightstands/standsync/internal/cli"
	"github.com/lightstands/standsync/internal/config"
)

func main() {
	cfg := config.LoadConfig()

	ctx := context.Background()
	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "standsync: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Run(ctx, subcommandArgs()); err != nil {
		fmt.Fprintf(os.Stderr, "standsync: %v\n", err)
		os.Exit(1)
	}
}

// subcommandArgs strips the configuration flags (which the config package
// already consumed) and returns the subcommand with its arguments.
func subcommandArgs() []string {
	fs := flag.NewFlagSet("standsync", flag.ContinueOnError)
	fs.String("a", "", "")
	fs.String("d", "", "")
	fs.Int("s", 0, "")
	fs.Bool("v", false, "")
	fs.String("c", "", "")
	fs.String("config", "", "")
	fs.SetOutput(io.Discard)
	_ = fs.Parse(os.Args[1:])
	return fs.Args()
}
