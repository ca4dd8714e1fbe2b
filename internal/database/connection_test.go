package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/localnerve/sheetsdb/internal/config"
	"github.com/localnerve/sheetsdb/internal/models"
)

func TestDialector(t *testing.T) {
	for _, dbType := range []string{"mysql", "mariadb", "postgres", "sqlite", "sqlserver"} {
		cfg := &config.Config{DBType: dbType, DBHost: "localhost", DBPort: "1", DBAppDatabase: "db"}
		d, err := Dialector(cfg, "u", "p")
		require.NoError(t, err, dbType)
		assert.NotNil(t, d, dbType)
	}

	_, err := Dialector(&config.Config{DBType: "oracle"}, "u", "p")
	assert.Error(t, err)
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, LogLevel("silent"))
	assert.Equal(t, logger.Info, LogLevel("info"))
	assert.Equal(t, logger.Warn, LogLevel("anything"))
}

func TestConnectSQLiteAndMigrate(t *testing.T) {
	cfg := &config.Config{
		DBType:               "sqlite",
		DBAppDatabase:        t.TempDir() + "/meta.db",
		DBAppConnectionLimit: 2,
		DBConnectionLimit:    2,
		DBLogLevel:           "silent",
	}

	db, err := Connect(cfg)
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, AutoMigrate(db))
	assert.True(t, db.Migrator().HasTable(&models.Project{}))
	assert.True(t, db.Migrator().HasTable(&models.Endpoint{}))
	assert.True(t, db.Migrator().HasTable(&models.ProjectAuth{}))

	userDB, err := ConnectUser(cfg)
	require.NoError(t, err)
	defer Close(userDB)
	assert.True(t, userDB.Migrator().HasTable("projects"))
}
