package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newTasksCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "Create, list, inspect and cancel tasks",
	}
	cmd.AddCommand(
		newTaskCreateCmd(opts),
		&cobra.Command{
			Use:   "list",
			Short: "List the owner's tasks, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return opts.callAndPrint(cmd, http.MethodGet, "/api/tasks", nil)
			},
		},
		&cobra.Command{
			Use:   "get <id>",
			Short: "Show one task",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid task id: %w", err)
				}
				return opts.callAndPrint(cmd, http.MethodGet, "/api/tasks/"+id.String(), nil)
			},
		},
		&cobra.Command{
			Use:   "cancel <id>",
			Short: "Cancel a pending task",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid task id: %w", err)
				}
				return opts.callAndPrint(cmd, http.MethodPost, "/api/tasks/"+id.String()+"/cancel", nil)
			},
		},
	)
	return cmd
}

func newTaskCreateCmd(opts *options) *cobra.Command {
	var (
		kind    string
		payload string
		at      string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a pending task",
		Example: `  nudgectl tasks create --kind content-analysis --payload '{"text":"great day"}'
  nudgectl tasks create --kind periodic-reminder --payload '{"sourceRecordId":"..."}' --at 2026-11-01T09:00:00Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body := map[string]any{"kind": kind}
			if payload != "" {
				if !json.Valid([]byte(payload)) {
					return fmt.Errorf("--payload is not valid JSON")
				}
				body["payload"] = json.RawMessage(payload)
			}
			if at != "" {
				when, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				body["scheduledFor"] = when
			}
			return opts.callAndPrint(cmd, http.MethodPost, "/api/tasks", body)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "periodic-reminder, content-analysis or media-processing")
	cmd.Flags().StringVar(&payload, "payload", "", "task payload as a JSON object")
	cmd.Flags().StringVar(&at, "at", "", "RFC 3339 time the task becomes due")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

func newRunDueCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run-due",
		Short: "Trigger one scheduler run on the server and print its summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := opts.call(cmd.Context(), http.MethodPost, "/api/tasks/run-due", nil)
			if data != nil {
				if perr := opts.printJSON(data); perr != nil && err == nil {
					err = perr
				}
			}
			return err
		},
	}
}
