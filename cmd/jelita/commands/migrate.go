// cmd/jelita/commands/migrate.go
package commands

import (
	"context"
	"fmt"

	"jelita/internal/common/database"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back the embedded schema migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			in := newInfra(cfg)
			defer in.Close()

			db, err := in.postgres(contextOrBackground(cmd.Context()))
			if err != nil {
				return err
			}

			switch args[0] {
			case "up":
				err = database.MigrateUp(db)
			case "down":
				err = database.MigrateDown(db)
			}
			if err != nil {
				return err
			}
			in.log.Info("migrations applied", map[string]interface{}{"direction": args[0]})
			fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: ok\n", args[0])
			return nil
		},
	}
}

// contextOrBackground guards commands executed without ExecuteContext.
func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
