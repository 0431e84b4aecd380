package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             100 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)
}

func configurePool(d *gorm.DB) error {
	sqlDB, err := d.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return nil
}

// Connect opens a gorm handle on a PostGIS-enabled Postgres.
func Connect(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	d, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: newLogger()})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := configurePool(d); err != nil {
		return nil, err
	}
	log.Println("Connected to database")
	return d, nil
}

// FromSQL wraps an already open *sql.DB, e.g. one opened with the pgx
// stdlib driver.
func FromSQL(sqlDB *sql.DB) (*gorm.DB, error) {
	d, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{Logger: newLogger()})
	if err != nil {
		return nil, fmt.Errorf("wrap database: %w", err)
	}
	return d, nil
}
