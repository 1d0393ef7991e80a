package repository

import (
	"context"
	"testing"

	"openobservatory/internal/geo"
	"openobservatory/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservationRepository_GetByIDLoadsRelations(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewObservationRepository(db)
	ctx := context.Background()

	author := createUser(t, db, "messier")
	body := createBody(t, db, "Andromeda", 12)
	obs := createObservation(t, db, author, body, 45.1, 5.7, models.VisibilityBinoculars)

	got, err := repo.GetByID(ctx, obs.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "messier", got.Author.Username)
	assert.Equal(t, "Andromeda", got.CelestialBody.Name)

	missing, err := repo.GetByID(ctx, obs.ID+1)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestObservationRepository_ListNewestFirst(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewObservationRepository(db)

	author := createUser(t, db, "author")
	body := createBody(t, db, "Moon", 1)
	var ids []uint
	for i := 0; i < 3; i++ {
		ids = append(ids, createObservation(t, db, author, body, 0, 0, models.VisibilityNakedEye).ID)
	}

	page, total, err := repo.List(context.Background(), 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)
}

func TestObservationRepository_ListInBox(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewObservationRepository(db)

	author := createUser(t, db, "author")
	body := createBody(t, db, "Jupiter", 3)
	paris := createObservation(t, db, author, body, 48.8566, 2.3522, models.VisibilityNakedEye)
	createObservation(t, db, author, body, 51.5074, -0.1278, models.VisibilityNakedEye)

	box := geo.BoundingBox(geo.Point{Lat: 48.80, Lng: 2.13}, 30)
	list, err := repo.ListInBox(context.Background(), box)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, paris.ID, list[0].ID)
}

func TestObservationRepository_UpdateFieldsAndDelete(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewObservationRepository(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	voter := createUser(t, db, "voter")
	body := createBody(t, db, "Saturn", 3)
	obs := createObservation(t, db, author, body, 1, 1, models.VisibilityNakedEye)
	obs.Description = "rings visible"
	require.NoError(t, db.Model(obs).Update("description", obs.Description).Error)
	require.NoError(t, db.Create(&models.ObservationVote{ObservationID: obs.ID, UserID: voter.ID, Vote: models.VoteUp}).Error)

	obs.Description = ""
	obs.Visibility = models.VisibilityTelescope
	require.NoError(t, repo.UpdateFields(ctx, obs, "description", "visibility"))

	got, err := repo.GetByID(ctx, obs.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Description)
	assert.Equal(t, models.VisibilityTelescope, got.Visibility)

	require.NoError(t, repo.Delete(ctx, obs.ID))
	gone, err := repo.GetByID(ctx, obs.ID)
	assert.NoError(t, err)
	assert.Nil(t, gone)

	var votes int64
	require.NoError(t, db.Model(&models.ObservationVote{}).Count(&votes).Error)
	assert.Zero(t, votes)
}

func TestObservationRepository_AuthorStats(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewObservationRepository(db)

	author := createUser(t, db, "author")
	other := createUser(t, db, "other")
	mars := createBody(t, db, "Mars", 2)
	venus := createBody(t, db, "Venus", 2)
	createObservation(t, db, author, mars, 0, 0, models.VisibilityNakedEye)
	createObservation(t, db, author, mars, 0, 0, models.VisibilityTelescope)
	createObservation(t, db, author, venus, 0, 0, models.VisibilityImagery)
	createObservation(t, db, other, venus, 0, 0, models.VisibilityImagery)

	stats, err := repo.AuthorStats(context.Background(), author.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Observations)
	assert.Equal(t, int64(2), stats.DistinctBodies)
	assert.Equal(t, int64(2), stats.Instrumented)
}
