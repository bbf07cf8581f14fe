package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rinacore/ipcpd/internal/rina/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample ipcpd configuration file.

By default, the configuration file is created at
$XDG_CONFIG_HOME/ipcpd/config.yaml. Use --config to specify a custom path.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	cfg := config.GetDefaultConfig()
	if err := config.SaveConfig(cfg, path); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit ipcp.name, ipcp.dif_name and shim.listen_addr")
	fmt.Println("  2. For the first IPCP in a DIF, set ipcp.bootstrap: true")
	fmt.Println("  3. For every other IPCP, set ipcp.bootstrap_to to the bootstrap's underlay endpoint")
	fmt.Printf("  4. Start the daemon with: ipcpd start --config %s\n", path)

	return nil
}
