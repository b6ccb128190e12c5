package database

import (
	"database/sql"
	"time"

	"crescendo/pkg/models"
)

// AddFavourite saves a favourite reference for a user. Creation is a
// find-or-create: the returned bool is true when a new row was created and
// false when the (user, kind, entity) pair was already favourited.
func (db *Database) AddFavourite(username string, kind models.FavouriteKind, entityID int64) (bool, error) {
	var existingID int64
	err := db.favouriteIDStmt.QueryRow(username, string(kind), entityID).Scan(&existingID)
	if err == nil {
		return false, nil
	}
	if err != sql.ErrNoRows {
		db.logger.WithError(err).WithField("username", username).Error("Failed to look up favourite")
		return false, err
	}

	result, err := db.insertFavouriteStmt.Exec(username, string(kind), entityID)
	if err != nil {
		db.logger.WithError(err).WithField("username", username).Error("Failed to insert favourite")
		return false, err
	}

	// A concurrent add may have raced us to the insert; the unique index
	// makes the conflict a no-op, reported as "already favourited".
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// RemoveFavourite deletes a favourite reference. Deleting an absent row is
// a no-op, not an error.
func (db *Database) RemoveFavourite(username string, kind models.FavouriteKind, entityID int64) error {
	_, err := db.deleteFavouriteStmt.Exec(username, string(kind), entityID)
	if err != nil {
		db.logger.WithError(err).WithField("username", username).Error("Failed to remove favourite")
	}
	return err
}

// ListFavourites returns up to limit favourite references for a user and
// kind, most recently saved first.
func (db *Database) ListFavourites(username string, kind models.FavouriteKind, limit int) ([]models.Favourite, error) {
	rows, err := db.listFavouritesStmt.Query(username, string(kind), limit)
	if err != nil {
		db.logger.WithError(err).WithField("username", username).Error("Failed to list favourites")
		return nil, err
	}
	defer rows.Close()

	var favourites []models.Favourite
	for rows.Next() {
		var fav models.Favourite
		var kindStr string
		var createdAt time.Time
		if err := rows.Scan(&fav.ID, &fav.Username, &kindStr, &fav.EntityID, &createdAt); err != nil {
			return nil, err
		}
		fav.Kind = models.FavouriteKind(kindStr)
		fav.CreatedAt = createdAt
		favourites = append(favourites, fav)
	}
	return favourites, rows.Err()
}
