package main

import (
	"fmt"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/fingerprint"
	"github.com/spf13/cobra"
)

func newFingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint <query-log-id> <question> <subject-code>",
		Short: "Print the progress key of one course",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), fingerprint.Compute(args[0], args[1], args[2]))
			return err
		},
	}
}
