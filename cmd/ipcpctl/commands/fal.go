package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rinacore/ipcpd/internal/cli/output"
)

var falCmd = &cobra.Command{
	Use:   "fal",
	Short: "Inspect allocated flows",
}

var falLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List active flows",
	RunE:  runFalLs,
}

func init() {
	falCmd.AddCommand(falLsCmd)
}

type flowEntry struct {
	RemoteAddr   uint64 `json:"remote_addr"`
	Endpoint     string `json:"endpoint"`
	State        string `json:"state"`
	LastActivity string `json:"last_activity"`
	SentPDUs     uint64 `json:"sent_pdus"`
	ReceivedPDUs uint64 `json:"received_pdus"`
	SendErrors   uint64 `json:"send_errors"`
}

type flowList []flowEntry

func (f flowList) Headers() []string {
	return []string{"REMOTE ADDR", "ENDPOINT", "STATE", "SENT", "RECEIVED", "ERRORS"}
}

func (f flowList) Rows() [][]string {
	rows := make([][]string, len(f))
	for i, fl := range f {
		rows[i] = []string{
			fmt.Sprintf("%d", fl.RemoteAddr),
			fl.Endpoint,
			fl.State,
			fmt.Sprintf("%d", fl.SentPDUs),
			fmt.Sprintf("%d", fl.ReceivedPDUs),
			fmt.Sprintf("%d", fl.SendErrors),
		}
	}
	return rows
}

func runFalLs(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	var flows flowList
	if err := getJSON("/fal", &flows); err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, flows)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, flows)
	default:
		return output.PrintTable(os.Stdout, flows)
	}
}
