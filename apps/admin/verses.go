package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (cli *commandLine) versesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verses",
		Short: "Manage the verses of the day",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import FILE",
		Short: "Import verses from a YAML file, skipping the existing ones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, "opening verses file")
			}
			defer func() { _ = f.Close() }()

			res, err := cli.verses.Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			cmd.Printf("%d verse(s) created, %d skipped\n", res.Created, res.Skipped)
			return nil
		},
	})
	return cmd
}
