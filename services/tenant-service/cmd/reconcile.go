package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"TenancyPlatform/services/tenant-service/internal/reconcile"
)

func newReconcileCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Report directory rows whose schema is missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, v)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := reconcile.NewSweeper(a.sessions, a.stores, a.metrics, a.log).Run(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tenants checked: %d\n", report.Tenants)
			if report.Consistent() {
				fmt.Fprintln(out, "no missing schemas")
				return nil
			}
			for _, t := range report.Missing {
				fmt.Fprintf(out, "missing schema %q for tenant %d (%s)\n", t.SchemaName, t.ID, t.Name)
			}
			return fmt.Errorf("%d tenant schemas missing", len(report.Missing))
		},
	}
}
