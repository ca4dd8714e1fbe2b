package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/localnerve/sheetsdb/internal/database"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the metadata schema as migrated on SQLite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ddl, err := migratedSchema()
			if err != nil {
				return err
			}
			for _, table := range ddl {
				fmt.Fprintf(cmd.OutOrStdout(), "\n=== Table: %s ===\n%s\n", table.Name, table.SQL)
			}
			return nil
		},
	}
}

type tableDDL struct {
	Name string
	SQL  string
}

// migratedSchema migrates an in-memory database and reads back what GORM created
func migratedSchema() ([]tableDDL, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		return nil, err
	}

	var tables []tableDDL
	err = db.Raw("SELECT name, sql FROM sqlite_master WHERE type = 'table' ORDER BY name").
		Scan(&tables).Error
	return tables, err
}
