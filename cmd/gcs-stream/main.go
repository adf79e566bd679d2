package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

func main() {
	os.Exit(run())
}

func run() int {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(newCpCmd(os.Stdin, os.Stdout), "")
	flag.Parse()
	return int(subcommands.Execute(context.Background()))
}
