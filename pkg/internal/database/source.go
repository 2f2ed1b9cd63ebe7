package database

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSource opens the database handle described by the datasource.dsn
// setting. The handle is owned by the caller; components receive it at
// construction instead of reaching for a process-wide singleton.
func NewSource() (*gorm.DB, error) {
	dsn := viper.GetString("datasource.dsn")

	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.New(&log.Logger, logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
	})
}
