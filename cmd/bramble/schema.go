package main

import (
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/bramble/pkg/graph"
)

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Declare the uniqueness constraints the upserts rely on",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := a.connect(ctx, false)
			if err != nil {
				return err
			}
			defer a.closeRuntime(rt)

			return graph.NewEngine(rt.client, rt.statements, a.logger).EnsureSchema(ctx)
		},
	}
}
