package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/catalogsync/catalogsync/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current config (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig

		fmt.Println("Current configuration:")
		fmt.Println()
		fmt.Printf("  Catalog:\n")
		fmt.Printf("    Server:         %s\n", cfg.Catalog.Server)
		fmt.Printf("    Token:          %s\n", maskSecret(cfg.Catalog.Token))
		fmt.Printf("    Env:            %s\n", cfg.Catalog.Env)
		fmt.Printf("    Platform:       %s\n", cfg.Catalog.Platform)
		fmt.Println()
		fmt.Printf("  Source:\n")
		fmt.Printf("    Type:           %s\n", cfg.Source.Type)
		fmt.Printf("    Host:           %s\n", cfg.Source.Host)
		fmt.Printf("    Port:           %d\n", cfg.Source.Port)
		fmt.Printf("    Database:       %s\n", cfg.Source.Database)
		fmt.Printf("    Schema:         %s\n", cfg.Source.Schema)
		fmt.Printf("    Username:       %s\n", cfg.Source.Username)
		fmt.Printf("    Password:       %s\n", maskSecret(cfg.Source.Password))
		if cfg.Source.KeyScript != "" {
			fmt.Printf("    Key script:     %s\n", cfg.Source.KeyScript)
		}
		fmt.Println()
		fmt.Printf("  Keys:\n")
		fmt.Printf("    Domain:         %s\n", cfg.Keys.Domain)
		fmt.Printf("    Foreign target: %s.%s.%s (%s)\n", cfg.Keys.Server, cfg.Keys.Database, cfg.Keys.Schema, cfg.Keys.ForeignEnv)
		fmt.Println()
		fmt.Printf("  Stats:\n")
		fmt.Printf("    Domain:         %s\n", cfg.Stats.Domain)
		fmt.Printf("    Max distinct:   %d\n", cfg.Stats.MaxDistinct)
		if cfg.Archive.ConnectionString != "" {
			fmt.Println()
			fmt.Printf("  Archive:\n")
			fmt.Printf("    Connection:     %s\n", maskSecret(cfg.Archive.ConnectionString))
			fmt.Printf("    Collection:     %s.%s\n", cfg.Archive.Database, cfg.Archive.Collection)
		}

		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Create a config file interactively",
	Annotations: map[string]string{skipConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)

		fmt.Println("catalogsync Configuration Setup")
		fmt.Println("===============================")
		fmt.Println()

		fmt.Println("Catalog")
		fmt.Println("-------")
		server := prompt(reader, "GMS server URL", "http://localhost:8080")
		token := prompt(reader, "Token (literal or ${ENV:..}/${VAULT:..}/${AWS_SM:..})", "${ENV:DATAHUB_TOKEN}")
		env := prompt(reader, "Environment", "DEV")
		fmt.Println()

		fmt.Println("Source Database")
		fmt.Println("---------------")
		dbType := prompt(reader, "Database type (mssql/postgresql/oracle)", "mssql")
		host := prompt(reader, "Host", "localhost")
		portStr := prompt(reader, "Port", defaultPort(dbType))
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid port: %s", portStr)
		}
		database := prompt(reader, "Database name", "")
		schema := prompt(reader, "Schema", "dbo")
		username := prompt(reader, "Username", "")
		password := prompt(reader, "Password (literal or secret reference)", "")
		fmt.Println()

		fmt.Println("Keys")
		fmt.Println("----")
		domain := prompt(reader, "Catalog domain", "")
		fmt.Println()

		cfg := &config.Config{
			Version: config.CurrentVersion,
			Catalog: config.CatalogConfig{Server: server, Token: token, Env: env},
			Source: config.SourceConfig{
				Type:     dbType,
				Host:     host,
				Port:     port,
				Database: database,
				Schema:   schema,
				Username: username,
				Password: password,
			},
			Keys: config.KeysConfig{
				Domain:   domain,
				Server:   host,
				Database: database,
				Schema:   schema,
			},
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		cfgPath := config.ExpandHome(config.DefaultPath)
		if cfgFile != "" {
			cfgPath = cfgFile
		}
		if err := cfg.Save(cfgPath); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		fmt.Printf("Config written to %s\n", cfgPath)
		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("  catalogsync keys --dry-run   Preview inferred keys")
		fmt.Println("  catalogsync keys --review    Review, then write keys")
		return nil
	},
}

func prompt(reader *bufio.Reader, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("  %s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("  %s: ", label)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}

func defaultPort(dbType string) string {
	switch dbType {
	case "postgresql":
		return "5432"
	case "oracle":
		return "1521"
	default:
		return "1433"
	}
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
