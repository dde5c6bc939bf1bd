package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/storefront/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/storefront.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter .storefront configuration file",
		Long: `Init writes a .storefront configuration file in the current directory.

The file documents every setting that is not a secret: listen address, site
name and locale, backend API versions, CSP allow-lists and extra bot patterns.
Secrets such as API tokens are read from the environment only.

Examples:
  # Create .storefront in the current directory
  storefront init

  # Create the file at a specific path
  storefront init -o deploy/storefront.yaml

  # Overwrite an existing file
  storefront init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/storefront.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, content, 0o600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nSet the backend credentials in the environment:")
	fmt.Fprintln(out, "  PUBLIC_STORE_DOMAIN, PUBLIC_CHECKOUT_DOMAIN, PUBLIC_STOREFRONT_API_TOKEN")
	fmt.Fprintln(out, "  SANITY_PROJECT_ID, SANITY_DATASET, SANITY_API_TOKEN")
	return nil
}
