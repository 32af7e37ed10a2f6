package cli

import (
	"devlogd/internal/global"
	"devlogd/internal/install"
	"flag"
	"fmt"
	"os"
)

// Setup/configuration options
func SetupMode(commandname string, args []string) {
	var configTemplatePath string
	var domainTemplatePath string
	var force bool

	commandFlags := flag.NewFlagSet(commandname, flag.ExitOnError)
	commandFlags.StringVar(&configTemplatePath, "c", "", "Write a template daemon config to this path")
	commandFlags.StringVar(&configTemplatePath, "config", "", "Write a template daemon config to this path")
	commandFlags.StringVar(&domainTemplatePath, "d", "", "Write a template domain policy to this path")
	commandFlags.StringVar(&domainTemplatePath, "domains", "", "Write a template domain policy to this path")
	commandFlags.BoolVar(&force, "force", false, "Overwrite existing files without asking")

	commandFlags.Usage = func() {
		PrintHelpMenu(commandFlags, commandname, global.CmdOpts)
	}
	if len(args) < 1 {
		PrintHelpMenu(commandFlags, commandname, global.CmdOpts)
		os.Exit(1)
	}
	commandFlags.Parse(args[0:])

	if configTemplatePath == "" && domainTemplatePath == "" {
		PrintHelpMenu(commandFlags, commandname, global.CmdOpts)
		os.Exit(1)
	}

	if configTemplatePath != "" {
		err := install.CreateTemplateConfig(configTemplatePath, force)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Successfully wrote template configuration file to '%s'\n", configTemplatePath)
	}

	if domainTemplatePath != "" {
		err := install.CreateDomainTemplate(domainTemplatePath, force)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Successfully wrote template domain policy to '%s'\n", domainTemplatePath)
	}
}
