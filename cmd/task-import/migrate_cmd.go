package main

import (
	"github.com/spf13/cobra"

	"github.com/iota-uz/sprintboard/modules/tasks/infrastructure/persistence"
	"github.com/iota-uz/sprintboard/pkg/configuration"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := configuration.Use()
			defer conf.Unload()

			pool, err := connectDB(cmd.Context(), conf)
			if err != nil {
				return withCode(exitDB, err)
			}
			defer pool.Close()

			if err := persistence.Migrate(cmd.Context(), pool, conf.Logger()); err != nil {
				return withCode(exitDBWrite, err)
			}
			return nil
		},
	}
}
