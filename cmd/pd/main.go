package main

import (
	"fmt"
	"os"

	"github.com/alfredjeanlab/pipelines/internal/client"
	"github.com/alfredjeanlab/pipelines/internal/ui"
	"github.com/spf13/cobra"
)

var (
	serverAddr string
	httpURL    string
	transport  string
	jsonOutput bool
	token      string
	requestID  string

	pipelineClient client.PipelineClient
)

func defaultHTTPURL() string {
	if s := os.Getenv("PIPELINES_HTTP_URL"); s != "" {
		return s
	}
	if u := activeRemoteURL(); u != "" {
		return u
	}
	return "http://localhost:8000"
}

func defaultServer() string {
	if s := os.Getenv("PIPELINES_SERVER"); s != "" {
		return s
	}
	if a := activeRemoteGRPCAddr(); a != "" {
		return a
	}
	return "localhost:9090"
}

func defaultToken() string {
	if s := os.Getenv("PIPELINES_TOKEN"); s != "" {
		return s
	}
	return activeRemoteToken()
}

// noClient overrides PersistentPreRunE for commands that never talk to a server.
func noClient(cmd *cobra.Command, args []string) error { return nil }

var rootCmd = &cobra.Command{
	Use:           "pd <command>",
	Short:         "Check pipeline graphs for cycles",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		pipelineClient = c
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if pipelineClient != nil {
			pipelineClient.Close()
		}
	},
}

func newClient() (client.PipelineClient, error) {
	switch transport {
	case "http":
		return client.NewHTTPClient(httpURL, token).WithRequestID(requestID), nil
	case "grpc":
		c, err := client.NewGRPCClient(serverAddr, token, client.RequestIDOption(requestID))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to server: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown transport %q (must be http or grpc)", transport)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "HTTP server URL")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", defaultServer(), "gRPC server address")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", "http", "transport protocol (http or grpc)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&token, "token", defaultToken(), "bearer token for authentication")
	rootCmd.PersistentFlags().StringVar(&requestID, "request-id", "", "request ID to send instead of a server-generated one")

	rootCmd.AddGroup(
		&cobra.Group{ID: "pipelines", Title: "Pipelines:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Pipelines
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(watchCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	if !ui.ShouldUseColor() {
		ui.ForceNoColor()
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
