package database

import (
	"time"

	"crescendo/pkg/models"
)

// RecordPlay appends one play event to the log. The username is optional;
// anonymous plays are stored with a NULL user. The log is append-only and
// never referenced for anything except count aggregation.
func (db *Database) RecordPlay(mediaType models.MediaType, trackID int64, username string) error {
	var user interface{}
	if username != "" {
		user = username
	}

	_, err := db.recordPlayStmt.Exec(string(mediaType), trackID, user, time.Now().UTC())
	if err != nil {
		db.logger.WithError(err).WithField("track_id", trackID).Error("Failed to record play")
	}
	return err
}
