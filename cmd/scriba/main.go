// Package main provides the scriba CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/scriba/cli"
)

var verbose bool

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "scriba",
		Short: "Research synthesis over local vector stores, the web, and your files",
		Long: `Answer research questions with an agentic loop over bounded tools:
local vector stores, a cloud knowledge base, web search, and read-only
filesystem inspection. The result is a markdown document with a full
source audit trail and token cost accounting.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.SetupLogging(verbose)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	rootCmd.AddCommand(researchCmd())
	rootCmd.AddCommand(storesCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func researchCmd() *cobra.Command {
	var (
		storeNames []string
		toolNames  []string
		modelName  string
		topK       int
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "research [question]",
		Short: "Answer a research question and print the synthesized document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			return cli.RunResearch(ctx, cli.ResearchParams{
				Question:   args[0],
				StoreNames: storeNames,
				ToolNames:  toolNames,
				ModelName:  modelName,
				TopK:       topK,
				AsJSON:     asJSON,
			})
		},
	}

	cmd.Flags().StringSliceVarP(&storeNames, "store", "s", nil, "Local store(s) to search (repeatable)")
	cmd.Flags().StringSliceVarP(&toolNames, "tool", "t", nil, "Tool(s) to enable: local, aws, web, glob, grep, read (default: local, glob, grep, read)")
	cmd.Flags().StringVarP(&modelName, "model", "m", "", "Model: haiku, sonnet, opus (default: sonnet)")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Results per retrieval query, 1-20 (default: 5)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full response as JSON")

	return cmd
}

func storesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stores",
		Short: "List the available local vector stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListStores(asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tool capability catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListTools()
		},
	}
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the available models and their prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListModels()
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ShowConfig()
		},
	}
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the research HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return cli.Serve(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from SCRIBA_HTTP_ADDR or :8080)")
	return cmd
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent research sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return cli.ShowHistory(ctx, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of sessions to show")
	return cmd
}
