package cli

import (
	"context"
	"devlogd/internal/daemon"
	"devlogd/internal/global"
	"devlogd/internal/lifecycle"
	"devlogd/internal/logctx"
	"flag"
	"fmt"
	"os"
)

// Starts the daemon in the foreground and blocks until shutdown
func RunMode(ctx context.Context, commandname string, args []string) {
	var configPath string
	var debugMode bool
	commandFlags := flag.NewFlagSet(commandname, flag.ExitOnError)
	SetGlobalArguments(commandFlags)
	SetCommon(commandFlags, &configPath)
	commandFlags.BoolVar(&debugMode, "debug", false, "Accept every domain and disable flow control")

	commandFlags.Usage = func() {
		PrintHelpMenu(commandFlags, commandname, global.CmdOpts)
	}
	commandFlags.Parse(args[0:])
	logctx.SetLogLevel(ctx, global.Verbosity)

	jsonCfg, err := daemon.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	daemonConfig, err := jsonCfg.NewDaemonConf()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if debugMode {
		daemonConfig.DebugMode = true
	}

	logDaemon := daemon.NewDaemon(daemonConfig)
	err = logDaemon.Start(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting log daemon: %v\n", err)
		os.Exit(1)
	}

	err = lifecycle.NotifyReady(ctx)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "Systemd notify ready failed: %v\n", err)
	}
	go lifecycle.SignalHandler(ctx, logDaemon)

	logDaemon.Run()
}
