package repository

import (
	"testing"
	"time"

	"openobservatory/internal/models"
	"openobservatory/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func setupSQLiteDB(t *testing.T) *gorm.DB {
	return testutil.NewSQLiteDB(t)
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Password: "hash",
		IsPublic: true,
		Role:     models.RoleUser,
		Radius:   models.DefaultRadiusKm,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createBody(t *testing.T, db *gorm.DB, name string, validity int) *models.CelestialBody {
	t.Helper()
	b := &models.CelestialBody{Name: name, ValidityTime: validity}
	require.NoError(t, db.Create(b).Error)
	return b
}

func createObservation(t *testing.T, db *gorm.DB, author *models.User, body *models.CelestialBody, lat, lng float64, vis models.ObservationVisibility) *models.Observation {
	t.Helper()
	o := &models.Observation{
		AuthorID:        author.ID,
		CelestialBodyID: body.ID,
		Latitude:        lat,
		Longitude:       lng,
		Visibility:      vis,
		Timestamp:       time.Now().UTC(),
	}
	require.NoError(t, db.Omit("Author", "CelestialBody").Create(o).Error)
	return o
}
