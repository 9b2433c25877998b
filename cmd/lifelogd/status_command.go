package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"lifelog/internal/api"
)

func newStatusCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := cctx.client()
			if err != nil {
				return err
			}

			var status api.StatusView
			if err := client.get(cmd.Context(), "/api/status", 0, &status); err != nil {
				return err
			}

			if cctx.jsonOutput() {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			state := "stopped"
			if status.Running {
				state = "running"
			}
			fmt.Fprintf(out, "Daemon: %s\n\n", state)

			rows := [][]string{
				{"total", strconv.Itoa(status.Entries.Total)},
				{"no media", strconv.Itoa(status.Entries.NoMedia)},
				{"pending", strconv.Itoa(status.Entries.Pending)},
				{"running", strconv.Itoa(status.Entries.Running)},
				{"done", strconv.Itoa(status.Entries.Done)},
			}
			fmt.Fprintln(out, renderTable([]string{"Entries", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))

			if len(status.StageFailures) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable([]string{"Stage", "Kind", "Failures"}, failureRows(status.StageFailures), []columnAlignment{alignLeft, alignLeft, alignRight}))
			}
			return nil
		},
	}
}

func failureRows(failures map[string]map[string]uint64) [][]string {
	stages := make([]string, 0, len(failures))
	for stage := range failures {
		stages = append(stages, stage)
	}
	sort.Strings(stages)

	var rows [][]string
	for _, stage := range stages {
		kinds := make([]string, 0, len(failures[stage]))
		for kind := range failures[stage] {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			rows = append(rows, []string{stage, kind, strconv.FormatUint(failures[stage][kind], 10)})
		}
	}
	return rows
}
