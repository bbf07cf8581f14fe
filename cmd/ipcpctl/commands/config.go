package commands

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/rinacore/ipcpd/internal/rina/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect ipcpd configuration",
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema for ipcpd's configuration file",
	RunE:  runConfigSchema,
}

func init() {
	configCmd.AddCommand(configSchemaCmd)
}

func runConfigSchema(cmd *cobra.Command, args []string) error {
	reflector := &jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(&config.Config{})

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	fmt.Println(string(data))
	return nil
}
