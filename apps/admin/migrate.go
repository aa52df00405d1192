package main

import (
	"github.com/spf13/cobra"

	"github.com/japhetcordova/clc-sub000/storage/database"
)

var runMigrationsFunc = database.RunMigrations // mockable

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose migration command (up, down, status, version, redo, reset, up-to, down-to...)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrationsFunc(cmd.Context(), cli.db.DB, cli.db.DriverName(), args[0], args[1:]...)
		},
	}
}
