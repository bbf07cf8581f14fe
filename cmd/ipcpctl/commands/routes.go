package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rinacore/ipcpd/internal/cli/output"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Inspect the routing table",
}

var routesLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List known routes",
	RunE:  runRoutesLs,
}

func init() {
	routesCmd.AddCommand(routesLsCmd)
}

type routeEntry struct {
	Destination     uint64 `json:"destination"`
	NextHopAddr     uint64 `json:"next_hop_addr"`
	NextHopEndpoint string `json:"next_hop_endpoint"`
}

type routeList []routeEntry

func (r routeList) Headers() []string { return []string{"DESTINATION", "NEXT HOP ADDR", "NEXT HOP ENDPOINT"} }

func (r routeList) Rows() [][]string {
	rows := make([][]string, len(r))
	for i, rt := range r {
		rows[i] = []string{fmt.Sprintf("%d", rt.Destination), fmt.Sprintf("%d", rt.NextHopAddr), rt.NextHopEndpoint}
	}
	return rows
}

func runRoutesLs(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	var routes routeList
	if err := getJSON("/routes", &routes); err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, routes)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, routes)
	default:
		return output.PrintTable(os.Stdout, routes)
	}
}
