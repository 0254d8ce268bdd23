package main

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/pipelines/internal/config"
	"github.com/alfredjeanlab/pipelines/internal/source"
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file|-|s3://bucket/key>",
	Short: "Submit a pipeline to the server and report whether it is a DAG",
	Long: `Submit a pipeline document to the pipelines server.

The document is a JSON object with "nodes" and "edges" arrays. It is read from
a local file, from standard input when the argument is "-", or from an
S3-compatible bucket.`,
	GroupID: "pipelines",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := args[0]
		ctx := context.Background()

		p, err := source.Load(ctx, ref, sourceOptions(cmd))
		if err != nil {
			return err
		}

		result, err := pipelineClient.ParsePipeline(ctx, p)
		if err != nil {
			return fmt.Errorf("parsing pipeline: %w", err)
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), result)
		}
		printResult(cmd.OutOrStdout(), ref, result)
		return nil
	},
}

// sourceOptions reads the S3 flags shared by parse and check.
func sourceOptions(cmd *cobra.Command) source.Options {
	region, _ := cmd.Flags().GetString("s3-region")
	endpoint, _ := cmd.Flags().GetString("s3-endpoint")
	return source.Options{
		S3Region:   region,
		S3Endpoint: endpoint,
		Stdin:      cmd.InOrStdin(),
	}
}

func addSourceFlags(cmd *cobra.Command) {
	src := config.LoadSource()
	cmd.Flags().String("s3-region", src.S3Region, "AWS region for s3:// documents")
	cmd.Flags().String("s3-endpoint", src.S3Endpoint, "custom S3 endpoint (MinIO and similar)")
}

func init() {
	addSourceFlags(parseCmd)
}
