package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge-api/internal/config"
	"github.com/phrazzld/nudge-api/internal/service/auth"
	"github.com/spf13/cobra"
)

func newTokenCmd(opts *options) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for an owner",
		Long: `Mint an access token signed with the server's auth.jwt_secret. The server
configuration is loaded the same way the server loads it.`,
		Example: `  nudgectl token --owner 6f1c...
  export NUDGECTL_TOKEN=$(nudgectl token --owner 6f1c...)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := uuid.Parse(owner)
			if err != nil {
				return fmt.Errorf("invalid --owner: %w", err)
			}
			cfg, err := config.LoadFile(opts.configFile)
			if err != nil {
				return err
			}
			svc, err := auth.NewJWTService(cfg.Auth)
			if err != nil {
				return err
			}
			tok, err := svc.GenerateToken(cmd.Context(), id)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(opts.out, tok)
			return err
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner id the token is issued for")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
