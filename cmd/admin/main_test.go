package main

import (
	"context"
	"testing"

	"openobservatory/internal/models"
	"openobservatory/internal/repository"
	"openobservatory/internal/service"
	"openobservatory/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRunPromoteDemote(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	users := service.NewUserService(
		repository.NewUserRepository(db),
		repository.NewObservationRepository(db),
		repository.NewVoteRepository(db),
		repository.NewAchievementRepository(db),
		repository.NewPushSubscriptionRepository(db),
		bcrypt.MinCost,
	)
	require.NoError(t, db.Create(&models.User{Username: "Lyra", Password: "x", Role: models.RoleUser, Radius: 5}).Error)
	ctx := context.Background()

	require.NoError(t, run(ctx, users, []string{"promote", "lyra"}))
	var u models.User
	require.NoError(t, db.Where("username = ?", "Lyra").First(&u).Error)
	assert.Equal(t, models.RoleAdmin, u.Role)

	require.NoError(t, run(ctx, users, []string{"list-admins"}))

	require.NoError(t, run(ctx, users, []string{"demote", "Lyra"}))
	require.NoError(t, db.First(&u, u.ID).Error)
	assert.Equal(t, models.RoleUser, u.Role)

	assert.ErrorContains(t, run(ctx, users, []string{"promote", "nobody"}), "not found")
	assert.Error(t, run(ctx, users, []string{"promote"}))
	assert.Error(t, run(ctx, users, []string{"launch"}))
}
