package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"signal-trade-bot-go/internal/database"
	"signal-trade-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *GormScanStore {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "ingest.db"))
	require.NoError(t, err)
	return NewGormScanStore(db)
}

func TestUpsertUser(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates on first sight", func(t *testing.T) {
		store := newTestStore(t)

		require.NoError(t, store.UpsertUser(ctx, &models.User{
			TelegramID: "42", Username: "alice", FirstName: "Alice",
		}))

		users, err := listUsers(store)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "alice", users[0].Username)
	})

	t.Run("Refreshes changed profile fields", func(t *testing.T) {
		store := newTestStore(t)

		require.NoError(t, store.UpsertUser(ctx, &models.User{
			TelegramID: "42", Username: "alice", FirstName: "Alice",
		}))
		require.NoError(t, store.UpsertUser(ctx, &models.User{
			TelegramID: "42", Username: "alice_renamed", FirstName: "Alice",
		}))

		users, err := listUsers(store)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "alice_renamed", users[0].Username)
	})

	t.Run("Empty fields do not erase a known profile", func(t *testing.T) {
		store := newTestStore(t)

		require.NoError(t, store.UpsertUser(ctx, &models.User{
			TelegramID: "42", Username: "alice", FirstName: "Alice",
		}))
		// A later message carrying no profile data.
		require.NoError(t, store.UpsertUser(ctx, &models.User{TelegramID: "42"}))

		users, err := listUsers(store)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "alice", users[0].Username)
		assert.Equal(t, "Alice", users[0].FirstName)
	})
}

func TestUpsertGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates and refreshes", func(t *testing.T) {
		store := newTestStore(t)

		require.NoError(t, store.UpsertGroup(ctx, &models.Group{
			TelegramID: "-1001", Title: "Alpha Calls", Type: "supergroup",
		}))
		require.NoError(t, store.UpsertGroup(ctx, &models.Group{
			TelegramID: "-1001", Title: "Alpha Calls v2",
		}))

		var groups []models.Group
		require.NoError(t, store.db.Find(&groups).Error)
		require.Len(t, groups, 1)
		assert.Equal(t, "Alpha Calls v2", groups[0].Title)
		// Type was absent from the second message and survives.
		assert.Equal(t, "supergroup", groups[0].Type)
	})
}

func listUsers(store *GormScanStore) ([]models.User, error) {
	var users []models.User
	err := store.db.Find(&users).Error
	return users, err
}
