package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/comic-spoiler/spoiler-detector/internal/container"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "spoilerctl %s\n", container.Version)
			return err
		},
	}
}
