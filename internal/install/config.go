// Writes starter configuration files
package install

import (
	"bufio"
	"devlogd/internal/daemon"
	"devlogd/internal/domain"
	"devlogd/internal/global"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

const domainTemplateHeader = `# devlogd domain policy
# ranges:  accepted domain ranges for non-application records
# domains: registered domains, an id ending in 0xFF covers every sub-domain.
#          quota overrides the flow control ceiling for that domain.
`

// Writes a daemon config with every section filled in
func CreateTemplateConfig(path string, force bool) (err error) {
	if path == "" {
		err = fmt.Errorf("specify template file path via the --config/-c arguments")
		return
	}

	var newCfg daemon.JSONConfig
	newCfg.DomainFile = global.DefaultDomainFile

	newCfg.Socket.Path = global.DefaultSocketPath
	newCfg.Socket.Readers = global.DefaultListenerCount
	newCfg.Socket.UseActivation = true

	newCfg.Kmsg.Enabled = true
	newCfg.Kmsg.Device = global.DefaultKmsgPath
	newCfg.Kmsg.MaxFailures = global.DefaultKmsgMaxFailure
	newCfg.Kmsg.RetryInterval = global.DefaultKmsgRetryInterval.String()

	newCfg.FlowControl.Enabled = true
	newCfg.FlowControl.DefaultQuota = 500
	newCfg.FlowControl.Window = global.DefaultFlowWindow.String()

	newCfg.Statistics.Enabled = true
	newCfg.Buffer.SizePerType = global.DefaultBufferPerType

	newCfg.Forward.BatchSize = 64
	newCfg.Forward.Timeout = global.ForwardDialTimeout.String()

	newCfg.Metrics.Interval = "5s"
	newCfg.Metrics.MaxAge = "72h"
	newCfg.Metrics.EnableQueryServer = true
	newCfg.Metrics.QueryServerPort = global.HTTPListenPort

	confBytes, err := json.MarshalIndent(newCfg, "", "  ")
	if err != nil {
		err = fmt.Errorf("error marshaling new config: %v", err)
		return
	}
	confBytes = append(confBytes, []byte("\n")...)

	err = writeTemplate(path, confBytes, force, os.Stdin, os.Stdout)
	return
}

// Writes a domain policy accepting the default vendor range with one sample registration
func CreateDomainTemplate(path string, force bool) (err error) {
	if path == "" {
		err = fmt.Errorf("specify template file path via the --domains/-d arguments")
		return
	}

	appMax := domain.DefaultAppDomainMax
	policy := domain.Policy{
		AppDomainMax: &appMax,
		Ranges: []domain.Range{
			{Start: domain.DefaultRangeStart, End: domain.DefaultRangeEnd},
		},
		Domains: []domain.Entry{
			{ID: 0xD0015FF, Name: "sample-subsystem", Quota: 1000},
		},
	}

	policyBytes, err := yaml.Marshal(policy)
	if err != nil {
		err = fmt.Errorf("error marshaling domain policy: %v", err)
		return
	}

	err = writeTemplate(path, append([]byte(domainTemplateHeader), policyBytes...), force, os.Stdin, os.Stdout)
	return
}

// Existing files are only replaced with force or an interactive confirmation
func writeTemplate(path string, content []byte, force bool, input io.Reader, output *os.File) (err error) {
	_, statErr := os.Stat(path)
	if statErr == nil && !force {
		// No terminal - no overwrite
		if !term.IsTerminal(int(output.Fd())) {
			err = fmt.Errorf("file '%s' already exists, not overwriting", path)
			return
		}

		fmt.Fprintf(output, "File already exists at '%s'. Are you SURE you want to overwrite it? (yes/no): ", path)
		reader := bufio.NewReader(input)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(answer)

		if strings.ToLower(answer) != "yes" {
			err = fmt.Errorf("not overwriting '%s'", path)
			return
		}
	}

	err = os.WriteFile(path, content, 0640)
	if err != nil {
		err = fmt.Errorf("failed to write template to file: %v", err)
		return
	}
	return
}
