package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/bramble/pkg/graph"
)

func newSampleCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print a sample of people with their organization and travel endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if !cmd.Flags().Changed("limit") {
				limit = a.cfg.SampleLimit
			}

			rt, err := a.connect(ctx, false)
			if err != nil {
				return err
			}
			defer a.closeRuntime(rt)

			people, err := graph.NewQueryService(rt.client, rt.statements, a.logger).SamplePeople(ctx, limit)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(people)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", graph.DefaultSampleLimit, "Maximum number of people (overrides SAMPLE_LIMIT)")
	return cmd
}
