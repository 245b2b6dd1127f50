// Package main provides the meatline CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/meatline/meatline/cli"
)

var (
	// Global flags
	provider string
	model    string
	verbose  bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "meatline",
		Short: "Conversational sales assistant for a meat trading catalog",
		Long: `Сonversational assistant backend for B2B meat sales.

Runs an HTTP server that answers client messages grounded in the product
catalog, delivers product photos through the messaging gateway and keeps
per-client conversation history.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log.Logger = log.Level(level)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openrouter, openai, anthropic, gemini)")
	rootCmd.PersistentFlags().StringVarP(&model, "model", "m", "", "Model id (provider default when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(queryCmd())
	rootCmd.AddCommand(resetCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{
		Provider: provider,
		Model:    model,
		Verbose:  verbose,
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Serve(cmd.Context(), options())
		},
	}
}

func askCmd() *cobra.Command {
	var phone string

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Run a single turn against local history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Ask(cmd.Context(), phone, args[0], options())
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "local", "Client phone used as the history key")
	return cmd
}

func queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query [request]",
		Short: "Run a natural-language catalog query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Query(cmd.Context(), args[0], options())
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset [phone]",
		Short: "Clear a client's conversation history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Reset(cmd.Context(), args[0])
		},
	}
}
