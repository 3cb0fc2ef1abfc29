// SPDX-License-Identifier: Apache-2.0

// Command prodbay-mcp exposes the completion-recovery pipeline, either as an
// MCP stdio server (serve) or as a one-shot CLI run over a file or stdin
// (recover).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ProdBay-app/ProdBay-sub000/internal/recovery"
	"github.com/ProdBay-app/ProdBay-sub000/internal/ruleset"
	"github.com/ProdBay-app/ProdBay-sub000/internal/tool"
)

const version = "0.1.0"

var (
	flagMode        string
	flagProfilePath string
)

func newLogger(mode string) (*zap.Logger, error) {
	var cfg zap.Config
	switch mode {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	// Stdout carries the MCP protocol; logs must stay off it.
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

func loadProfile() (ruleset.Profile, error) {
	if flagProfilePath == "" {
		if env := os.Getenv("PRODBAY_PROFILE"); env != "" {
			flagProfilePath = env
		}
	}
	if flagProfilePath == "" {
		return ruleset.Default(), nil
	}
	return ruleset.Load(flagProfilePath)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP stdio server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(flagMode)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			profile, err := loadProfile()
			if err != nil {
				return err
			}

			server := mcp.NewServer(&mcp.Implementation{
				Name:    "prodbay-mcp",
				Version: version,
			}, nil)
			mcp.AddTool(server, tool.MetadataRecoverAssetList, tool.RecoverAssetListWith(profile))

			logger.Info("starting MCP stdio server",
				zap.String("tool", tool.MetadataRecoverAssetList.Name),
				zap.String("version", version))

			return server.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}

func newRecoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recover [file]",
		Short: "Recover asset records from a completion in a file or on stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(flagMode)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			var raw []byte
			if len(args) == 1 {
				raw, err = os.ReadFile(args[0])
			} else {
				raw, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read completion: %w", err)
			}

			profile, err := loadProfile()
			if err != nil {
				return err
			}

			pipeline := recovery.NewPipeline(profile)
			result, err := pipeline.Recover(cmd.Context(), string(raw))
			if err != nil {
				logger.Error("recovery failed", zap.Error(err))
				return err
			}

			logger.Info("recovery succeeded",
				zap.Int("records", len(result.Records)),
				zap.String("strategy", result.Strategy),
				zap.Bool("repair_attempted", result.Telemetry.RepairAttempted),
				zap.Int("objects_saved", result.Telemetry.ObjectsSaved))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "prodbay-mcp",
		Short:         "Recover structured asset records from LLM completions",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagMode, "mode", "dev", "logging mode: dev or prod")
	root.PersistentFlags().StringVar(&flagProfilePath, "profile", "", "path to a YAML extraction profile (or set PRODBAY_PROFILE)")
	root.AddCommand(newServeCmd(), newRecoverCmd())
	return root
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
