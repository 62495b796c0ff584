package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"TenancyPlatform/pkg/logger"
	"TenancyPlatform/services/tenant-service/internal/migration"
)

func newMigrateCmd(v *viper.Viper) *cobra.Command {
	var schema string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply migrations to the shared schema and every active tenant schema",
		Example: `  tenant-service migrate
  tenant-service migrate --schema acme`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, v)
			if err != nil {
				return err
			}
			defer a.close()

			orch, runner, err := a.orchestrator()
			if err != nil {
				return err
			}

			if schema != "" {
				if runner.ModelSetFor(schema) == migration.ModelSetShared {
					return runner.ApplyShared(ctx)
				}
				return orch.RunOne(ctx, schema)
			}

			summary, err := orch.RunAll(ctx)
			if err != nil {
				return err
			}
			if summary.Failed > 0 {
				return fmt.Errorf("migrations failed for %d of %d schemas: %s",
					summary.Failed, summary.Total, strings.Join(summary.FailedSchemas(), ", "))
			}

			a.log.Info("Migrations complete", logger.Int("schemas", summary.Total))
			return nil
		},
	}

	cmd.Flags().StringVar(&schema, "schema", "", "migrate a single schema instead of the whole batch")
	return cmd
}
