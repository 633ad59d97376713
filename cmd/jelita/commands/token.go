// cmd/jelita/commands/token.go
package commands

import (
	"fmt"
	"time"

	"jelita/internal/common/auth"
	"jelita/internal/common/config"

	"github.com/spf13/cobra"
)

type tokenOptions struct {
	userID   int64
	role     string
	officeID int64
}

func newTokenCmd() *cobra.Command {
	opts := &tokenOptions{}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			token, exp, err := mintToken(cfg, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().Int64Var(&opts.userID, "user-id", 0, "subject user id")
	cmd.Flags().StringVar(&opts.role, "role", "", "Pemohon, Admin, OPD or Pimpinan")
	cmd.Flags().Int64Var(&opts.officeID, "opd-id", 0, "office id for OPD users")
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func mintToken(cfg *config.Config, opts *tokenOptions) (string, time.Time, error) {
	if opts.userID <= 0 {
		return "", time.Time{}, fmt.Errorf("--user-id must be positive")
	}
	role, err := auth.ParseRole(opts.role)
	if err != nil {
		return "", time.Time{}, err
	}
	if role == auth.RoleOffice && opts.officeID <= 0 {
		return "", time.Time{}, fmt.Errorf("--opd-id is required for OPD tokens")
	}
	tokens := auth.NewTokenManager(cfg.Auth.JWT.Secret, cfg.Auth.JWT.Issuer, config.GetDuration(cfg.Auth.JWT.TTL))
	return tokens.Issue(auth.Principal{UserID: opts.userID, Role: role, OfficeID: opts.officeID})
}
