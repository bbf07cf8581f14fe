package commands

import (
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/rinacore/ipcpd/internal/cli/prompt"
	"github.com/rinacore/ipcpd/internal/rina/config"
)

var enrolConfigPath string

var enrolCmd = &cobra.Command{
	Use:   "enrol",
	Short: "Interactively configure this IPCP to join a DIF",
	Long: `enrol walks through choosing a bootstrap peer and writes the
resulting ipcp.bootstrap_to setting into the configuration file. It does
not contact the daemon: ipcpd performs the actual enrolment handshake
the next time it starts, since the admin API never mutates IPCP state.`,
	RunE: runEnrol,
}

func init() {
	enrolCmd.Flags().StringVar(&enrolConfigPath, "config", "", "Config file to update (default: $XDG_CONFIG_HOME/ipcpd/config.yaml)")
}

func runEnrol(cmd *cobra.Command, args []string) error {
	path := enrolConfigPath
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	endpoint, err := promptInput("Bootstrap IPCP underlay endpoint (host:port)")
	if err != nil {
		return err
	}

	difName, err := promptInput("DIF name to join")
	if err != nil {
		return err
	}

	cfg.IPCP.Bootstrap = false
	cfg.IPCP.BootstrapTo = endpoint
	cfg.IPCP.DIFName = difName

	confirmed, err := prompt.Confirm(fmt.Sprintf("Write bootstrap_to=%s, dif_name=%s to %s", endpoint, difName, path), true)
	if err != nil {
		return err
	}
	if !confirmed {
		fmt.Println("Aborted, configuration unchanged")
		return nil
	}

	if err := config.SaveConfig(cfg, path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Updated %s. Restart ipcpd to enrol.\n", path)
	return nil
}

func promptInput(label string) (string, error) {
	p := promptui.Prompt{Label: label}
	result, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("%s: %w", label, err)
	}
	return result, nil
}
