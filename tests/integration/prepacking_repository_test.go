package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prepacking/backend/internal/domain/prepacking"
	"github.com/prepacking/backend/internal/domain/shared"
	"github.com/prepacking/backend/internal/infrastructure/migration"
	"github.com/prepacking/backend/internal/infrastructure/persistence"
	"github.com/prepacking/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newDraft(t *testing.T, facilityID, programID uuid.UUID, sizes ...int64) *prepacking.PrepackingEvent {
	t.Helper()

	items := make([]prepacking.LineItem, 0, len(sizes))
	for _, size := range sizes {
		lotID := uuid.New()
		item, err := prepacking.NewLineItem(uuid.New(), &lotID, size, 4)
		require.NoError(t, err)
		items = append(items, item)
	}
	event, err := prepacking.NewPrepackingEvent(facilityID, programID,
		prepacking.Author{UserID: testutil.TestUserID(), UserNames: "Jane, Doe"}, "integration", items)
	require.NoError(t, err)
	return event
}

// TestPrepackingEventRepository_Integration runs the repository against PostgreSQL
func TestPrepackingEventRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormPrepackingEventRepository(testDB.DB)
	ctx := context.Background()

	t.Run("Save and FindByID", func(t *testing.T) {
		event := newDraft(t, testutil.TestFacilityID(), testutil.TestProgramID(), 10, 25)
		require.NoError(t, repo.Save(ctx, event))

		found, err := repo.FindByID(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, prepacking.StatusDraft, found.Status)
		assert.Equal(t, event.UserID, found.UserID)
		require.Len(t, found.LineItems, 2)
		assert.Equal(t, event.LineItems[0].ID, found.LineItems[0].ID)
		assert.Equal(t, int64(25), found.LineItems[1].PrepackSize)
		assert.WithinDuration(t, event.DateCreated, found.DateCreated, time.Millisecond)
	})

	t.Run("Authorize keeps line remarks", func(t *testing.T) {
		event := newDraft(t, testutil.TestFacilityID(), testutil.TestProgramID(), 10, 25)
		require.NoError(t, repo.Save(ctx, event))

		event.LineItems[0].MarkSuccessful(80)
		event.LineItems[1].MarkOrderableNotFound()
		require.NoError(t, event.Authorize(testutil.TestUserID(), "done"))
		require.NoError(t, repo.Save(ctx, event))

		found, err := repo.FindByID(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, prepacking.StatusAuthorized, found.Status)
		require.NotNil(t, found.DateAuthorised)
		assert.Equal(t, prepacking.LineItemStatusSuccessful, found.LineItems[0].Status)
		assert.Equal(t, prepacking.LineItemStatusOrderableNotFound, found.LineItems[1].Status)
		require.Len(t, found.StatusChanges, 2)
	})

	t.Run("Delete cascades to children", func(t *testing.T) {
		event := newDraft(t, testutil.TestFacilityID(), testutil.TestProgramID(), 10, 25, 50)
		require.NoError(t, repo.Save(ctx, event))

		require.NoError(t, repo.Delete(ctx, event.ID))

		var lineItems, changes int64
		require.NoError(t, testDB.DB.Table("prepacking_line_items").
			Where("prepacking_event_id = ?", event.ID).Count(&lineItems).Error)
		require.NoError(t, testDB.DB.Table("prepacking_event_status_changes").
			Where("prepacking_event_id = ?", event.ID).Count(&changes).Error)
		assert.Zero(t, lineItems)
		assert.Zero(t, changes)
		assert.ErrorIs(t, repo.Delete(ctx, event.ID), shared.ErrNotFound)
	})

	t.Run("Status check constraint", func(t *testing.T) {
		event := newDraft(t, testutil.TestFacilityID(), testutil.TestProgramID(), 10)
		require.NoError(t, repo.Save(ctx, event))

		err := testDB.DB.Exec(`UPDATE prepacking_events SET status = 'SHIPPED' WHERE id = ?`, event.ID).Error
		assert.Error(t, err)
	})

	t.Run("Concurrent decisions on one draft", func(t *testing.T) {
		event := newDraft(t, testutil.TestFacilityID(), testutil.TestProgramID(), 10)
		require.NoError(t, repo.Save(ctx, event))

		const workers = 4
		loaded := make([]*prepacking.PrepackingEvent, workers)
		for i := range loaded {
			e, err := repo.FindByID(ctx, event.ID)
			require.NoError(t, err)
			loaded[i] = e
		}

		var wg sync.WaitGroup
		errs := make([]error, workers)
		for i := range loaded {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if err := loaded[i].Reject(testutil.TestUserID(), "race"); err != nil {
					errs[i] = err
					return
				}
				errs[i] = repo.Save(ctx, loaded[i])
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		}
		assert.Equal(t, 1, succeeded)

		stored, err := repo.FindByID(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, prepacking.StatusRejected, stored.Status)
		assert.Len(t, stored.StatusChanges, 2)
	})

	t.Run("CountDrafts", func(t *testing.T) {
		testDB.CleanTables()
		for i := 0; i < 2; i++ {
			require.NoError(t, repo.Save(ctx, newDraft(t, testutil.TestFacilityID(), testutil.TestProgramID(), 10)))
		}

		count, err := repo.CountDrafts(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})
}

func TestMigrations_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	m, err := migration.New(testDB.SqlDB, "", zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = m.Close()
	})

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)

	require.NoError(t, m.Down())
	assert.False(t, testDB.DB.Migrator().HasTable("prepacking_events"))

	require.NoError(t, m.Up())
	assert.True(t, testDB.DB.Migrator().HasTable("prepacking_events"))
	assert.True(t, testDB.DB.Migrator().HasTable("prepacking_line_items"))
}
