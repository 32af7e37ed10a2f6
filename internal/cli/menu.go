package cli

import (
	"devlogd/internal/global"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	RootCLICommand string = "root"
	menuIndent     int    = 2
)

// Printed under the root menu only
var helpMenuTrailer = fmt.Sprintf(`
Files:
  %-28s daemon configuration (JSON)
  %-28s domain policy (YAML)

Signals:
  SIGHUP                       reload the domain policy without restarting
  SIGINT, SIGTERM, SIGQUIT     drain and stop the daemon

Query server (localhost, default port %d):
  %s %s %s %s %s %s %s
`, global.DefaultConfigPath, global.DefaultDomainFile, global.HTTPListenPort,
	global.DataPath, global.DiscoveryPath, global.AggregationPath,
	global.StatsPath, global.FlowPath, global.SettingsPath, global.BufferPath)

// Prints the help menu for a command to stdout
func PrintHelpMenu(fs *flag.FlagSet, command string, rootCmd *global.CommandSet) {
	writeHelpMenu(os.Stdout, filepath.Base(os.Args[0]), fs, command, rootCmd)
}

func writeHelpMenu(output io.Writer, program string, fs *flag.FlagSet, command string, rootCmd *global.CommandSet) {
	indent := strings.Repeat(" ", menuIndent)

	curCmdSet := rootCmd
	if command != "" && command != RootCLICommand {
		cmd, ok := rootCmd.ChildCommands[command]
		if !ok {
			fmt.Fprintf(output, "Unknown command: %s\n", command)
			return
		}
		curCmdSet = cmd
	}

	// Usage line
	usage := program
	if curCmdSet == rootCmd {
		usage += " <command>"
	} else {
		usage += " " + curCmdSet.CommandName
	}
	if curCmdSet.UsageOption != "" {
		usage += " " + curCmdSet.UsageOption
	}
	fmt.Fprintf(output, "Usage: %s [options]\n\n", usage)

	if curCmdSet == rootCmd {
		fmt.Fprintln(output, rootCmd.Description)
		fmt.Fprintln(output, rootCmd.FullDescription)
		fmt.Fprintln(output)
	} else if curCmdSet.FullDescription != "" {
		fmt.Fprintf(output, "%s%s\n\n", indent, curCmdSet.FullDescription)
	}

	if len(curCmdSet.ChildCommands) > 0 {
		names := make([]string, 0, len(curCmdSet.ChildCommands))
		width := 0
		for name := range curCmdSet.ChildCommands {
			names = append(names, name)
			width = max(width, len(name))
		}
		sort.Strings(names)

		fmt.Fprintf(output, "%sCommands:\n", indent)
		for _, name := range names {
			fmt.Fprintf(output, "%s%s%-*s  %s\n", indent, indent, width, name, curCmdSet.ChildCommands[name].Description)
		}
		fmt.Fprintln(output)
	}

	writeFlagOptions(output, fs, indent)

	if curCmdSet == rootCmd {
		fmt.Fprint(output, helpMenuTrailer)
	}
}

// One option line: every spelling of a flag sharing the same usage text
type optionLine struct {
	short      []string
	long       []string
	usage      string
	defaultVal string
}

func (line optionLine) names() (joined string) {
	joined = strings.Join(append(append([]string{}, line.short...), line.long...), ", ")
	if len(line.short) == 0 {
		// Long-only flags line up with the long half of paired flags
		joined = "    " + joined
	}
	return
}

// Prints flags with short and long spellings merged onto one line
func writeFlagOptions(output io.Writer, fs *flag.FlagSet, indent string) {
	byUsage := make(map[string]*optionLine)
	var order []string

	fs.VisitAll(func(arg *flag.Flag) {
		line, ok := byUsage[arg.Usage]
		if !ok {
			line = &optionLine{usage: arg.Usage, defaultVal: arg.DefValue}
			byUsage[arg.Usage] = line
			order = append(order, arg.Usage)
		}
		if len(arg.Name) == 1 {
			line.short = append(line.short, "-"+arg.Name)
		} else {
			line.long = append(line.long, "--"+arg.Name)
		}
	})
	if len(order) == 0 {
		return
	}

	lines := make([]optionLine, 0, len(order))
	width := 0
	for _, usage := range order {
		line := *byUsage[usage]
		sort.Strings(line.short)
		sort.Strings(line.long)
		lines = append(lines, line)
		width = max(width, len(line.names()))
	}
	sort.Slice(lines, func(i, j int) bool {
		return strings.ToLower(strings.TrimLeft(lines[i].names(), " -")) < strings.ToLower(strings.TrimLeft(lines[j].names(), " -"))
	})

	fmt.Fprintf(output, "%sOptions:\n", indent)
	for _, line := range lines {
		desc := line.usage
		switch line.defaultVal {
		case "", "false", "0":
		default:
			desc += " [default: " + line.defaultVal + "]"
		}
		fmt.Fprintf(output, "%s%-*s  %s\n", indent, width, line.names(), desc)
	}
}
