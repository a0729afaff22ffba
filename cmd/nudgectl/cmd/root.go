// Package cmd holds the nudgectl command tree.
package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// options are the global flags shared by every subcommand.
type options struct {
	configFile string
	server     string
	token      string
	timeout    time.Duration

	out    io.Writer
	client *http.Client
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	v := viper.New()

	root := &cobra.Command{
		Use:   "nudgectl",
		Short: "Operate the nudge task orchestration API",
		Long: `nudgectl mints access tokens, applies database migrations and calls the
nudge API to create, inspect and run tasks.

The server address and token may also be set with NUDGECTL_SERVER and
NUDGECTL_TOKEN.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			opts.out = cmd.OutOrStdout()
			if opts.client == nil {
				opts.client = &http.Client{Timeout: opts.timeout}
			}
			if !cmd.Flags().Changed("server") {
				if s := v.GetString("server"); s != "" {
					opts.server = s
				}
			}
			if !cmd.Flags().Changed("token") {
				opts.token = v.GetString("token")
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "server config file used by token and migrate (default ./config.yaml)")
	flags.StringVar(&opts.server, "server", "http://localhost:8080", "base URL of the nudge API")
	flags.StringVar(&opts.token, "token", "", "bearer token for API calls")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")

	v.SetEnvPrefix("NUDGECTL")
	v.AutomaticEnv()
	_ = v.BindEnv("server")
	_ = v.BindEnv("token")

	root.AddCommand(
		newTokenCmd(opts),
		newMigrateCmd(opts),
		newTasksCmd(opts),
		newRunDueCmd(opts),
		newStatsCmd(opts),
	)
	return root
}

// apiError is the error body returned by the API.
type apiError struct {
	Error   string `json:"error"`
	TraceID string `json:"traceId"`
}

// call sends a JSON request to the API and returns the response body. Non-2xx
// responses become errors carrying the server's message and trace id.
func (o *options) call(ctx context.Context, method, path string, body any) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		rd = bytes.NewReader(raw)
	}

	url := strings.TrimRight(o.server, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if o.token != "" {
		req.Header.Set("Authorization", "Bearer "+o.token)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return data, fmt.Errorf("%s %s: %d %s (trace %s)", method, path, resp.StatusCode, apiErr.Error, apiErr.TraceID)
		}
		return data, fmt.Errorf("%s %s: %d", method, path, resp.StatusCode)
	}
	return data, nil
}

// printJSON writes data indented to the command output.
func (o *options) printJSON(data []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		_, werr := o.out.Write(data)
		return werr
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(o.out)
	return err
}

// callAndPrint is the common path for read commands.
func (o *options) callAndPrint(cmd *cobra.Command, method, path string, body any) error {
	data, err := o.call(cmd.Context(), method, path, body)
	if err != nil {
		return err
	}
	return o.printJSON(data)
}
