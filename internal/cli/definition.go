package cli

import "devlogd/internal/global"

// Command tree used by the help menus
func DefineOptions() (cmdOpts *global.CommandSet) {
	// Root level
	root := &global.CommandSet{
		Description:     "Device Log Daemon (devlogd)",
		FullDescription: "  Collects device log records from local producers and the kernel into a shared in-memory store",
		CommandName:     RootCLICommand,
		ChildCommands:   make(map[string]*global.CommandSet),
	}

	// Daemon
	root.ChildCommands["run"] = &global.CommandSet{
		CommandName:     "run",
		Description:     "Run Log Daemon",
		FullDescription: "Receives log records on the input socket and from the kernel, gates them by domain and rate, and stores them",
		ChildCommands:   nil,
	}

	// Statistics
	root.ChildCommands["stats"] = &global.CommandSet{
		CommandName:     "stats",
		Description:     "Show Log Statistics",
		FullDescription: "Queries a running daemon for per-type, per-domain and per-process log statistics",
		ChildCommands:   nil,
	}

	// Setup
	root.ChildCommands["configure"] = &global.CommandSet{
		CommandName:     "configure",
		Description:     "Setup Actions",
		FullDescription: "Create template configuration and domain policy files",
		ChildCommands:   nil,
	}

	// Version Info
	root.ChildCommands["version"] = &global.CommandSet{
		CommandName:     "version",
		Description:     "Show Version Information",
		FullDescription: "Display meta information about program",
	}

	cmdOpts = root
	return
}
