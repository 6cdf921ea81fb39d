package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize MockAPI with default configuration and directory structure",
	Long: `Creates the default configuration file (config.yaml) and data directory structure.

This command will:
  - Create config.yaml with default settings
  - Create data/ directory for file storage
  - Create data/projects/ directory for project definitions
  - Create data/rules/ directory for mock rules
  - Create data/entities.yaml for template db lookups

If config.yaml already exists, it will not be overwritten unless --force is used.`,
	RunE: runInit,
}

var (
	initForce bool
	initPath  string
)

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing config file")
	initCmd.Flags().StringVarP(&initPath, "path", "p", ".", "Path where to initialize (default: current directory)")
}

func runInit(cmd *cobra.Command, args []string) error {
	// Resolve path to absolute
	absPath, err := filepath.Abs(initPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	configFile := filepath.Join(absPath, "config.yaml")
	dataDir := filepath.Join(absPath, "data")

	// Check if config already exists
	if _, err := os.Stat(configFile); err == nil && !initForce {
		return fmt.Errorf("config.yaml already exists. Use --force to overwrite")
	}

	// Create directory structure
	dirs := []string{
		dataDir,
		filepath.Join(dataDir, "projects"),
		filepath.Join(dataDir, "rules"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		fmt.Printf("Created directory: %s\n", dir)
	}

	// Create default config
	config := map[string]interface{}{
		"server": map[string]interface{}{
			"port": 8080,
			"host": "0.0.0.0",
			"tls": map[string]interface{}{
				"enabled":      false,
				"certFile":     "",
				"keyFile":      "",
				"autoGenerate": true,
				"storePath":    "",
			},
		},
		"storage": map[string]interface{}{
			"type": "file",
			"path": "./data",
		},
		"txlog": map[string]interface{}{
			"maxRecords": 1000,
		},
		"lookup": map[string]interface{}{
			"entitiesFile": "data/entities.yaml",
			"bindings": map[string]interface{}{
				"username": "user",
			},
		},
		"logging": map[string]interface{}{
			"level":  "info",
			"format": "json",
		},
	}

	// Marshal to YAML
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}

	// Add header comment
	header := `# MockAPI Configuration

`
	configData := []byte(header + string(data))

	// Write config file
	if err := os.WriteFile(configFile, configData, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	fmt.Printf("Created config file: %s\n", configFile)

	// Seed an empty entities file if none exists
	entitiesFile := filepath.Join(dataDir, "entities.yaml")
	if _, err := os.Stat(entitiesFile); os.IsNotExist(err) {
		seed := []byte(`# Entity records available to templates through {{db.*}} expressions.
# Each top-level key is a model name; each entry is a record.
#
# user:
#   - username: alice
#     email: alice@example.com
#     plan: premium
`)
		if err := os.WriteFile(entitiesFile, seed, 0644); err != nil {
			return fmt.Errorf("failed to write entities file: %w", err)
		}
		fmt.Printf("Created entities file: %s\n", entitiesFile)
	}

	fmt.Println()
	fmt.Println("Initialization complete! You can now start the server with:")
	fmt.Println()
	fmt.Printf("  cd %s\n", absPath)
	fmt.Println("  mockapi serve")
	fmt.Println()

	return nil
}
