package cli

import (
	"bytes"
	"devlogd/internal/global"
	"flag"
	"strings"
	"testing"
)

func TestWriteHelpMenu(t *testing.T) {
	root := DefineOptions()

	newFlags := func() (fs *flag.FlagSet) {
		fs = flag.NewFlagSet("configure", flag.ContinueOnError)
		var path string
		var force bool
		fs.StringVar(&path, "c", "", "Write a template daemon config to this path")
		fs.StringVar(&path, "config", "", "Write a template daemon config to this path")
		fs.BoolVar(&force, "force", false, "Overwrite existing files without asking")
		fs.IntVar(new(int), "port", global.HTTPListenPort, "Query server port")
		return
	}

	tests := []struct {
		name        string
		command     string
		contains    []string
		notContains []string
	}{
		{
			name:    "root lists commands and trailer",
			command: RootCLICommand,
			contains: []string{
				"Usage: devlogd <command> [options]",
				"Commands:",
				"configure  Setup Actions",
				"stats      Show Log Statistics",
				"SIGHUP",
				global.DefaultDomainFile,
				global.BufferPath,
			},
		},
		{
			name:        "subcommand shows description without trailer",
			command:     "configure",
			contains:    []string{"Usage: devlogd configure [options]", "Create template configuration"},
			notContains: []string{"Commands:", "SIGHUP"},
		},
		{
			name:     "short and long flags share one line",
			command:  "configure",
			contains: []string{"  -c, --config  Write a template daemon config to this path\n"},
		},
		{
			name:     "long only flags are aligned and defaults shown",
			command:  "configure",
			contains: []string{"      --force   Overwrite existing files without asking\n", "[default: 18514]"},
		},
		{
			name:        "unknown command",
			command:     "frobnicate",
			contains:    []string{"Unknown command: frobnicate"},
			notContains: []string{"Usage:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			writeHelpMenu(&buf, "devlogd", newFlags(), tt.command, root)
			out := buf.String()

			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("missing %q in:\n%s", want, out)
				}
			}
			for _, unwanted := range tt.notContains {
				if strings.Contains(out, unwanted) {
					t.Errorf("unexpected %q in:\n%s", unwanted, out)
				}
			}
		})
	}
}
