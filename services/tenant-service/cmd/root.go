package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	serviceName      = "tenant-service"
	serviceVersion   = "v1.0.0"
	metricsNamespace = "tenant_service"
)

// newRootCmd собирает дерево команд. Флаги --config и --log-level
// можно задать и через TENANCY_CONFIG / TENANCY_LOG_LEVEL.
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("TENANCY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   serviceName,
		Short: "Schema-per-tenant multi-tenancy service",
		Long: `tenant-service изолирует данные арендаторов по схемам PostgreSQL.

Команды:
  serve      HTTP API, gRPC health и плановая сверка
  migrate    миграции общей схемы и схем арендаторов
  worker     обработка запросов на миграцию из RabbitMQ
  reconcile  разовая сверка каталога со схемами базы`,
		Version:       serviceVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringP("config", "c", "", "path to config file (yaml or json)")
	flags.String("log-level", "", "override logger level (debug, info, warn, error)")
	_ = v.BindPFlag("config", flags.Lookup("config"))
	_ = v.BindPFlag("log-level", flags.Lookup("log-level"))

	cmd.AddCommand(
		newServeCmd(v),
		newMigrateCmd(v),
		newWorkerCmd(v),
		newReconcileCmd(v),
	)
	return cmd
}
