package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rinacore/ipcpd/internal/cli/health"
	"github.com/rinacore/ipcpd/internal/cli/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the daemon's health and enrolment state",
	RunE:  runStatus,
}

type enrolmentResponse struct {
	State     string `json:"state"`
	LocalAddr uint64 `json:"local_addr"`
}

type statusView struct {
	Reachable      bool   `json:"reachable" yaml:"reachable"`
	Status         string `json:"status,omitempty" yaml:"status,omitempty"`
	DIFName        string `json:"dif_name,omitempty" yaml:"dif_name,omitempty"`
	Uptime         string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	EnrolmentState string `json:"enrolment_state,omitempty" yaml:"enrolment_state,omitempty"`
	LocalAddr      uint64 `json:"local_addr,omitempty" yaml:"local_addr,omitempty"`
}

func (s statusView) Headers() []string { return []string{"FIELD", "VALUE"} }

func (s statusView) Rows() [][]string {
	if !s.Reachable {
		return [][]string{{"status", "unreachable"}}
	}
	return [][]string{
		{"status", s.Status},
		{"dif_name", s.DIFName},
		{"uptime", s.Uptime},
		{"enrolment_state", s.EnrolmentState},
		{"local_addr", fmt.Sprintf("%d", s.LocalAddr)},
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	var view statusView
	var hz health.Response
	if err := getJSON("/healthz", &hz); err != nil {
		view.Reachable = false
	} else {
		view.Reachable = true
		view.Status = hz.Status
		view.DIFName = hz.Data.Service
		view.Uptime = hz.Data.Uptime
		var enrolment enrolmentResponse
		if err := getJSON("/enrolment", &enrolment); err == nil {
			view.EnrolmentState = enrolment.State
			view.LocalAddr = enrolment.LocalAddr
		}
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, view)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, view)
	default:
		return output.PrintTable(os.Stdout, view)
	}
}
