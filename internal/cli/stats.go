package cli

import (
	"context"
	"devlogd/internal/global"
	"devlogd/internal/stats"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

const (
	defaultTableWidth = 80
	minTableWidth     = 64
)

// Prints (or resets) the statistics of a running daemon
func StatsMode(ctx context.Context, commandname string, args []string) {
	var port int
	var reset bool
	var rawJSON bool

	commandFlags := flag.NewFlagSet(commandname, flag.ExitOnError)
	SetGlobalArguments(commandFlags)
	commandFlags.IntVar(&port, "p", global.HTTPListenPort, "Query server port of the running daemon")
	commandFlags.IntVar(&port, "port", global.HTTPListenPort, "Query server port of the running daemon")
	commandFlags.BoolVar(&reset, "reset", false, "Clear the daemon's statistics instead of printing them")
	commandFlags.BoolVar(&rawJSON, "json", false, "Print the raw statistics snapshot")

	commandFlags.Usage = func() {
		PrintHelpMenu(commandFlags, commandname, global.CmdOpts)
	}
	commandFlags.Parse(args[0:])

	baseURL := "http://" + global.HTTPListenAddr + ":" + strconv.Itoa(port)
	client := &http.Client{Timeout: 5 * time.Second}

	if reset {
		err := resetStats(ctx, client, baseURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Statistics reset")
		return
	}

	snap, raw, err := fetchStats(ctx, client, baseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if rawJSON {
		os.Stdout.Write(raw)
		return
	}

	width := defaultTableWidth
	if term.IsTerminal(int(os.Stdout.Fd())) {
		termWidth, _, sizeErr := term.GetSize(int(os.Stdout.Fd()))
		if sizeErr == nil && termWidth > 0 {
			width = termWidth
		}
	}
	renderStats(os.Stdout, snap, width)
}

func fetchStats(ctx context.Context, client *http.Client, baseURL string) (snap stats.Snapshot, raw []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+global.StatsPath, nil)
	if err != nil {
		err = fmt.Errorf("failed to build statistics request: %v", err)
		return
	}

	resp, err := client.Do(req)
	if err != nil {
		err = fmt.Errorf("failed to reach daemon query server: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("daemon returned status %s", resp.Status)
		return
	}

	raw, err = io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("failed to read statistics: %v", err)
		return
	}

	err = json.Unmarshal(raw, &snap)
	if err != nil {
		err = fmt.Errorf("invalid statistics response: %v", err)
		return
	}
	return
}

func resetStats(ctx context.Context, client *http.Client, baseURL string) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, baseURL+global.StatsPath, nil)
	if err != nil {
		err = fmt.Errorf("failed to build reset request: %v", err)
		return
	}

	resp, err := client.Do(req)
	if err != nil {
		err = fmt.Errorf("failed to reach daemon query server: %v", err)
		return
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		err = fmt.Errorf("daemon returned status %s", resp.Status)
	}
	return
}

// Prints the snapshot as fixed-width tables. The name column takes whatever width the counters leave.
func renderStats(output io.Writer, snap stats.Snapshot, width int) {
	const counterCols = 3
	const counterWidth = 12

	if width < minTableWidth {
		width = minTableWidth
	}
	nameWidth := width - counterCols*(counterWidth+1)

	row := func(name string, counter stats.Counter) {
		if len(name) > nameWidth {
			name = name[:nameWidth-1] + "~"
		}
		fmt.Fprintf(output, "%-*s %*d %*d %*d\n",
			nameWidth, name,
			counterWidth, counter.Lines,
			counterWidth, counter.Bytes,
			counterWidth, counter.Dropped)
	}
	header := func(title string) {
		fmt.Fprintf(output, "\n%-*s %*s %*s %*s\n",
			nameWidth, title,
			counterWidth, "LINES",
			counterWidth, "BYTES",
			counterWidth, "DROPPED")
		fmt.Fprintln(output, strings.Repeat("-", width))
	}

	fmt.Fprintf(output, "Collecting since %s\n", snap.Since.Format(time.RFC3339))
	if !snap.FirstLog.IsZero() {
		fmt.Fprintf(output, "Log records from %s to %s\n", snap.FirstLog.Format(time.RFC3339), snap.LastLog.Format(time.RFC3339))
	}

	header("TYPE/LEVEL")
	for _, typeStats := range snap.Types {
		row(typeStats.Type, typeStats.Total)

		levels := make([]string, 0, len(typeStats.Levels))
		for level := range typeStats.Levels {
			levels = append(levels, level)
		}
		sort.Strings(levels)
		for _, level := range levels {
			row("  "+level, typeStats.Levels[level])
		}
	}
	row("total", snap.Total)

	if len(snap.Domains) > 0 {
		header("DOMAIN")
		domains := append([]stats.DomainStats(nil), snap.Domains...)
		sort.Slice(domains, func(i, j int) bool { return domains[i].Domain < domains[j].Domain })
		for _, domainStats := range domains {
			row(fmt.Sprintf("0x%X", domainStats.Domain), domainStats.Total)

			tags := make([]string, 0, len(domainStats.Tags))
			for tag := range domainStats.Tags {
				tags = append(tags, tag)
			}
			sort.Strings(tags)
			for _, tag := range tags {
				row("  "+tag, domainStats.Tags[tag])
			}
		}
	}

	if len(snap.Pids) > 0 {
		header("PID (TYPE)")
		pids := append([]stats.PidStats(nil), snap.Pids...)
		sort.Slice(pids, func(i, j int) bool { return pids[i].Pid < pids[j].Pid })
		for _, pidStats := range pids {
			row(fmt.Sprintf("%d (%s)", pidStats.Pid, pidStats.Type), pidStats.Total)
		}
	}
}
