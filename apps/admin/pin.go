package main

import (
	"github.com/spf13/cobra"

	"github.com/japhetcordova/clc-sub000/core/accesspin"
)

func (cli *commandLine) pinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Show or rotate today's scanner PIN",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print today's PIN, generating it if needed",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				pin, err := cli.pins.Current(cmd.Context())
				if err != nil {
					return err
				}
				printPIN(cmd, pin)
				return nil
			},
		},
		&cobra.Command{
			Use:   "rotate",
			Short: "Replace today's PIN; scanners signed in with the old one are signed out",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				pin, err := cli.pins.Rotate(cmd.Context())
				if err != nil {
					return err
				}
				printPIN(cmd, pin)
				return nil
			},
		},
	)
	return cmd
}

func printPIN(cmd *cobra.Command, pin accesspin.PIN) {
	cmd.Printf("%s (date %s, expires %s)\n", pin.Value, pin.Date, pin.ExpiresAt.Format("2006-01-02 15:04 MST"))
}
