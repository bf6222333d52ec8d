package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"
	"github.com/zulandar/fatebot/internal/config"
	"github.com/zulandar/fatebot/internal/db"
	"gorm.io/gorm"
)

// loadConfig reads the config file at path. A missing file yields the
// default configuration (local SQLite, no chat platform).
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openStore opens the configured store and brings its schema up to date.
func openStore(cfg *config.Config) (*gorm.DB, error) {
	gormDB, err := db.Open(cfg.Storage)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return nil, err
	}
	return gormDB, nil
}

func addConfigFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVarP(path, "config", "c", defaultConfigPath, "path to fatebot config file")
}
