package main

import (
	"context"
	"devlogd/internal/cli"
	"devlogd/internal/global"
	"devlogd/internal/logctx"
	"flag"
	"fmt"
	"os"
	"runtime"
)

func main() {
	cliOpts := cli.DefineOptions()
	global.CmdOpts = cliOpts

	args := os.Args
	commandFlags := flag.NewFlagSet(args[0], flag.ExitOnError)
	requestedLogLevel := cli.SetGlobalArguments(commandFlags)

	commandFlags.Usage = func() {
		cli.PrintHelpMenu(commandFlags, cli.RootCLICommand, cliOpts)
	}
	if len(args) < 2 {
		cli.PrintHelpMenu(commandFlags, cli.RootCLICommand, cliOpts)
		os.Exit(1)
	}
	commandFlags.Parse(args[1:])

	// Retrieve command and args
	remaining := commandFlags.Args()
	if len(remaining) < 1 {
		cli.PrintHelpMenu(commandFlags, cli.RootCLICommand, cliOpts)
		os.Exit(1)
	}
	command := remaining[0]
	args = remaining[1:]

	// Setting global logging
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logctx.New(ctx, "global", *requestedLogLevel, ctx.Done()) // New logger tied to global
	logger := logctx.GetLogger(ctx)
	logctx.StartWatcher(logger, os.Stdout) // Send received output to stdout

	// Process commands
	switch command {
	case "run":
		cli.RunMode(ctx, command, args)
	case "stats":
		cli.StatsMode(ctx, command, args)
	case "configure":
		cli.SetupMode(command, args)
	case "version":
		if len(args) > 0 && (args[0] == "--verbosity" || args[0] == "-v") {
			fmt.Printf("devlogd %s\n", global.ProgVersion)
			fmt.Printf("Built using %s(%s) for %s on %s\n", runtime.Version(), runtime.Compiler, runtime.GOOS, runtime.GOARCH)
		} else {
			fmt.Println(global.ProgVersion)
		}
	default:
		cli.PrintHelpMenu(commandFlags, cli.RootCLICommand, cliOpts)
		os.Exit(1)
	}

	// Finish up any stdout writes for global logger
	cancel()
	logger.Wake()
	logger.Wait()
}
