package services

import (
	"time"

	"github.com/pollcast/pollcast/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// DoAutoPollMaintenance reconciles stale open flags on polls that are past
// their deadline. It never touches total_votes; the live clock check in the
// admission and aggregation paths stays authoritative, this sweep just keeps
// the stored flag from lagging forever on polls nobody votes on anymore.
func DoAutoPollMaintenance(source *gorm.DB) {
	result := source.Model(&models.Poll{}).
		Where("status = ? AND expired_at <= ?", models.PollStatusOpen, time.Now()).
		Update("status", models.PollStatusClosed)
	if result.Error != nil {
		log.Error().Err(result.Error).Msg("An error occurred when sweeping expired polls...")
	} else if result.RowsAffected > 0 {
		log.Debug().Int64("count", result.RowsAffected).Msg("Swept expired polls into closed status.")
	}
}
