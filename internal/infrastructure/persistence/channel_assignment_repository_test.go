package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/menusync/backend/internal/domain/channel"
)

// ChannelAssignmentModelSQLite is a SQLite-compatible version of
// ChannelAssignmentModel for testing
type ChannelAssignmentModelSQLite struct {
	ID                 string `gorm:"primaryKey"`
	TenantID           string `gorm:"uniqueIndex:idx_assignments_tenant_channel;not null"`
	ChannelCode        string `gorm:"uniqueIndex:idx_assignments_tenant_channel;not null"`
	AuthJSON           string `gorm:"column:auth"`
	IsEnabled          bool
	RateLimitPerMinute int
	FeaturesJSON       string `gorm:"column:features"`
	LastSyncAt         *time.Time
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

func (ChannelAssignmentModelSQLite) TableName() string {
	return "channel_assignments"
}

func setupAssignmentTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&ChannelAssignmentModelSQLite{})
	require.NoError(t, err)

	return db
}

func newAssignment(tenantID uuid.UUID, code channel.Code) *channel.Assignment {
	now := time.Now()
	return &channel.Assignment{
		ID:          uuid.New(),
		TenantID:    tenantID,
		ChannelCode: code,
		Auth: channel.AuthConfig{
			APIKey:        "key-1",
			APISecret:     "secret-1",
			StoreID:       "store-1",
			WebhookSecret: "hook-1",
		},
		IsEnabled:          true,
		RateLimitPerMinute: 30,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func TestChannelAssignmentRepository_SaveAndFind(t *testing.T) {
	db := setupAssignmentTestDB(t)
	repo := NewGormChannelAssignmentRepository(db)
	ctx := context.Background()

	t.Run("round trips credentials and feature overrides", func(t *testing.T) {
		tenantID := uuid.New()
		assignment := newAssignment(tenantID, channel.CodeUberEats)
		assignment.Features = channel.NewFeatureSet(channel.FeatureMenuPush, channel.FeatureOrderPull)

		require.NoError(t, repo.Save(ctx, assignment))

		found, err := repo.FindByID(ctx, tenantID, assignment.ID)
		require.NoError(t, err)
		assert.Equal(t, assignment.ID, found.ID)
		assert.Equal(t, "key-1", found.Auth.APIKey)
		assert.Equal(t, "store-1", found.Auth.StoreID)
		assert.Equal(t, 30, found.RateLimitPerMinute)
		assert.True(t, found.Features.Has(channel.FeatureMenuPush))
		assert.False(t, found.Features.Has(channel.FeatureItemUpdate))
	})

	t.Run("updates existing assignment", func(t *testing.T) {
		tenantID := uuid.New()
		assignment := newAssignment(tenantID, channel.CodeDoorDash)
		require.NoError(t, repo.Save(ctx, assignment))

		assignment.IsEnabled = false
		assignment.Auth.APIKey = "rotated-key"
		require.NoError(t, repo.Save(ctx, assignment))

		found, err := repo.FindByID(ctx, tenantID, assignment.ID)
		require.NoError(t, err)
		assert.False(t, found.IsEnabled)
		assert.Equal(t, "rotated-key", found.Auth.APIKey)
	})

	t.Run("is tenant scoped", func(t *testing.T) {
		assignment := newAssignment(uuid.New(), channel.CodeUberEats)
		require.NoError(t, repo.Save(ctx, assignment))

		_, err := repo.FindByID(ctx, uuid.New(), assignment.ID)
		assert.ErrorIs(t, err, channel.ErrAssignmentNotFound)
	})
}

func TestChannelAssignmentRepository_FindByChannel(t *testing.T) {
	db := setupAssignmentTestDB(t)
	repo := NewGormChannelAssignmentRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	assignment := newAssignment(tenantID, channel.CodeUberEats)
	require.NoError(t, repo.Save(ctx, assignment))

	t.Run("finds by tenant and channel pair", func(t *testing.T) {
		found, err := repo.FindByChannel(ctx, tenantID, channel.CodeUberEats)
		require.NoError(t, err)
		assert.Equal(t, assignment.ID, found.ID)
	})

	t.Run("returns not found for unassigned channel", func(t *testing.T) {
		_, err := repo.FindByChannel(ctx, tenantID, channel.CodeDoorDash)
		assert.ErrorIs(t, err, channel.ErrAssignmentNotFound)
	})
}

func TestChannelAssignmentRepository_FindAllForTenant(t *testing.T) {
	db := setupAssignmentTestDB(t)
	repo := NewGormChannelAssignmentRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	require.NoError(t, repo.Save(ctx, newAssignment(tenantID, channel.CodeUberEats)))
	require.NoError(t, repo.Save(ctx, newAssignment(tenantID, channel.CodeDoorDash)))
	require.NoError(t, repo.Save(ctx, newAssignment(uuid.New(), channel.CodeUberEats)))

	assignments, err := repo.FindAllForTenant(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.Equal(t, channel.CodeDoorDash, assignments[0].ChannelCode)
	assert.Equal(t, channel.CodeUberEats, assignments[1].ChannelCode)
}

func TestChannelAssignmentRepository_Delete(t *testing.T) {
	db := setupAssignmentTestDB(t)
	repo := NewGormChannelAssignmentRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	assignment := newAssignment(tenantID, channel.CodeUberEats)
	require.NoError(t, repo.Save(ctx, assignment))

	t.Run("delete is tenant scoped", func(t *testing.T) {
		err := repo.Delete(ctx, uuid.New(), assignment.ID)
		assert.ErrorIs(t, err, channel.ErrAssignmentNotFound)
	})

	t.Run("deletes the assignment", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, tenantID, assignment.ID))

		_, err := repo.FindByID(ctx, tenantID, assignment.ID)
		assert.ErrorIs(t, err, channel.ErrAssignmentNotFound)
	})

	t.Run("deleting twice returns not found", func(t *testing.T) {
		err := repo.Delete(ctx, tenantID, assignment.ID)
		assert.ErrorIs(t, err, channel.ErrAssignmentNotFound)
	})
}
