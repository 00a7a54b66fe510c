package main

import (
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"printer-docs-backend/internal/metrics"
)

// reconcileCmd runs the model-name reconciliation once and exits.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Merge vendor-prefixed printer duplicates into canonical models and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		res, err := a.reconciler(metrics.New(prometheus.NewRegistry())).Run(ctx)
		if err != nil {
			return fmt.Errorf("reconciliation failed: %w", err)
		}

		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}
