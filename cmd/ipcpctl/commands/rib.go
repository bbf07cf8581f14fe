package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rinacore/ipcpd/internal/cli/output"
)

var ribPrefix string

var ribCmd = &cobra.Command{
	Use:   "rib",
	Short: "Inspect the RIB",
}

var ribLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List RIB objects",
	RunE:  runRibLs,
}

func init() {
	ribLsCmd.Flags().StringVar(&ribPrefix, "prefix", "", "Only list objects whose name has this prefix")
	ribCmd.AddCommand(ribLsCmd)
}

type ribObject struct {
	Name         string `json:"name"`
	Class        string `json:"class"`
	Value        any    `json:"value"`
	Version      uint64 `json:"version"`
	LastModified string `json:"last_modified"`
}

type ribListResponse struct {
	Version uint64      `json:"version"`
	Objects []ribObject `json:"objects"`
}

func (r ribListResponse) Headers() []string { return []string{"NAME", "CLASS", "VERSION", "MODIFIED"} }

func (r ribListResponse) Rows() [][]string {
	rows := make([][]string, len(r.Objects))
	for i, o := range r.Objects {
		rows[i] = []string{o.Name, o.Class, fmt.Sprintf("%d", o.Version), o.LastModified}
	}
	return rows
}

func runRibLs(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	var resp ribListResponse
	path := "/rib"
	if ribPrefix != "" {
		path += "?prefix=" + ribPrefix
	}
	if err := getJSON(path, &resp); err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, resp)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, resp)
	default:
		return output.PrintTable(os.Stdout, resp)
	}
}
