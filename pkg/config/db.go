package config

import (
	"errors"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ErrNoDSN is returned by OpenDB when DB_DSN is empty.
var ErrNoDSN = errors.New("DB_DSN is not set. This project requires a Postgres DSN in DB_DSN")

// OpenDB connects to postgres using cfg.DBDSN.
func (c Config) OpenDB() (*gorm.DB, error) {
	if c.DBDSN == "" {
		return nil, ErrNoDSN
	}
	return gorm.Open(postgres.Open(c.DBDSN), &gorm.Config{})
}
