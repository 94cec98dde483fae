package store

import (
	"database/sql"

	"github.com/Simplici0/smeta/internal/models"
)

// Estimates is the estimates collection.
func Estimates(db *sql.DB) *Collection[models.Estimate] {
	return newCollection[models.Estimate](db, "estimates")
}

// Materials is the material catalog collection.
func Materials(db *sql.DB) *Collection[models.Material] {
	return newCollection[models.Material](db, "materials")
}
