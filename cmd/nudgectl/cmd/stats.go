package cmd

import (
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

func newStatsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregated task and record statistics",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "tasks",
			Short: "Task counts by status, with stale running tasks",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return opts.callAndPrint(cmd, http.MethodGet, "/api/stats/tasks", nil)
			},
		},
		&cobra.Command{
			Use:       "records <sentiment|image>",
			Short:     "Record counts by sentiment or processing status",
			Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
			ValidArgs: []string{"sentiment", "image"},
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.callAndPrint(cmd, http.MethodGet, "/api/stats/records/"+url.PathEscape(args[0]), nil)
			},
		},
	)
	return cmd
}
