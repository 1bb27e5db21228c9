// Package db opens and migrates the bot database.
package db

import (
	"fmt"

	"github.com/prominer44/Dare-or-truth/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens a GORM connection for the configured backend.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case "mysql":
		return ConnectMySQL(cfg.Host, cfg.Port, cfg.Name)
	default:
		return ConnectSQLite(cfg.Path)
	}
}

// ConnectSQLite opens a GORM connection to a SQLite file. Use ":memory:"
// for an ephemeral database in tests.
func ConnectSQLite(path string) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open sqlite %s: %w", path, err)
	}
	return gdb, nil
}

// DSN builds a MySQL DSN.
func DSN(host string, port int, database string) string {
	return fmt.Sprintf("root@tcp(%s:%d)/%s?parseTime=true", host, port, database)
}

// ConnectMySQL opens a GORM connection to a MySQL database.
func ConnectMySQL(host string, port int, database string) (*gorm.DB, error) {
	dsn := DSN(host, port, database)
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: connect to %s:%d/%s: %w", host, port, database, err)
	}
	return gdb, nil
}
