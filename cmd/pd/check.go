package main

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/pipelines/internal/graph"
	"github.com/alfredjeanlab/pipelines/internal/model"
	"github.com/alfredjeanlab/pipelines/internal/source"
	"github.com/spf13/cobra"
)

// errNotDAG is returned by check so the process exits non-zero.
var errNotDAG = errors.New("pipeline contains a cycle")

var checkCmd = &cobra.Command{
	Use:   "check <file|-|s3://bucket/key>",
	Short: "Check a pipeline locally without a server",
	Long: `Analyze a pipeline document locally.

Prints the node and edge counts, whether the graph is a DAG, and diagnostics:
duplicate identifiers, edges to unknown nodes, and the nodes left blocked by a
cycle. Exits with status 1 when the pipeline is not a DAG.`,
	GroupID:           "pipelines",
	Args:              cobra.ExactArgs(1),
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := args[0]
		strict, _ := cmd.Flags().GetBool("strict")

		p, err := source.Load(context.Background(), ref, sourceOptions(cmd))
		if err != nil {
			return err
		}
		if strict {
			if err := model.ValidateIdentifiers(p.Nodes); err != nil {
				return err
			}
		}

		a := graph.Analyze(p.Nodes, p.Edges)
		if jsonOutput {
			if err := printJSON(cmd.OutOrStdout(), newCheckReport(a)); err != nil {
				return err
			}
		} else {
			printAnalysis(cmd.OutOrStdout(), ref, a)
		}

		if !a.IsDAG {
			return errNotDAG
		}
		return nil
	},
}

func init() {
	addSourceFlags(checkCmd)
	checkCmd.Flags().Bool("strict", false, "reject duplicate node identifiers")
}
