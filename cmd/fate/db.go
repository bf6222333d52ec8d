package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/fatebot/internal/config"
	"github.com/zulandar/fatebot/internal/db"
	"gorm.io/gorm"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the character database",
		Long:  "Creates the database (MySQL) or database file (SQLite) and migrates the character tables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	gormDB, err := initStore(cmd, cfg)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))
	fmt.Fprintln(out, "\nCharacter database initialized successfully.")
	return nil
}

// initStore makes sure the configured database exists and connects to it.
func initStore(cmd *cobra.Command, cfg *config.Config) (*gorm.DB, error) {
	out := cmd.OutOrStdout()

	if cfg.Storage.Driver == config.DriverSQLite {
		gormDB, err := db.OpenSQLite(cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(out, "Opened SQLite database %s\n", cfg.Storage.SQLite.Path)
		return gormDB, nil
	}

	my := cfg.Storage.MySQL
	adminDB, err := db.ConnectAdmin(my)
	if err != nil {
		return nil, fmt.Errorf("connect to MySQL at %s:%d: %w", my.Host, my.Port, err)
	}
	fmt.Fprintf(out, "Connected to MySQL at %s:%d\n", my.Host, my.Port)

	if err := db.CreateDatabase(adminDB, my.Database); err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "Database %s ready\n", my.Database)

	gormDB, err := db.Connect(my)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", my.Database, err)
	}
	return gormDB, nil
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and re-initialize the character database",
		Long: `Drops the character database and re-creates it from config.

For MySQL the database is dropped and re-created. For SQLite the
database file is deleted. Both are then migrated from scratch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, yes)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, skipConfirm bool) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	target := cfg.Storage.SQLite.Path
	if cfg.Storage.Driver == config.DriverMySQL {
		target = cfg.Storage.MySQL.Database
	}

	if !skipConfirm && !confirmReset(cmd, target) {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	if cfg.Storage.Driver == config.DriverSQLite {
		if err := db.RemoveSQLite(target); err != nil {
			return err
		}
	} else {
		adminDB, err := db.ConnectAdmin(cfg.Storage.MySQL)
		if err != nil {
			return fmt.Errorf("connect to MySQL at %s:%d: %w", cfg.Storage.MySQL.Host, cfg.Storage.MySQL.Port, err)
		}
		if err := db.DropDatabase(adminDB, target); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "Dropped database %s\n", target)

	return runDBInit(cmd, configPath)
}

// confirmReset asks the user to type "yes" before destroying data.
func confirmReset(cmd *cobra.Command, target string) bool {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "WARNING: This will permanently delete all characters in %q.\n", target)
	fmt.Fprintln(out, "This action cannot be undone.")
	fmt.Fprintln(out)
	fmt.Fprint(out, "Type \"yes\" to confirm: ")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes"
	}
	return false
}
