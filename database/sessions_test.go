package database

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vyasa-labs/granthika/model"
)

func TestInsertSession(t *testing.T) {
	db := initDB(t)
	defer db.Close()
	handler, err := NewSessionsDBHandler(db, false)
	require.NoError(t, err)

	first := &model.DiscoverySession{
		ID:         uuid.New(),
		Settings:   model.DefaultSessionSettings(),
		TotalUnits: 500,
	}

	t.Run("Insert first session", func(t *testing.T) {
		err := handler.InsertSession(first)
		assert.NoError(t, err)
		assert.Equal(t, model.SessionRunning, first.Status)
		assert.Equal(t, 0.7, first.Settings.ConfidenceThreshold, "settings round-trip through storage")
	})

	t.Run("Second active session returns ErrSessionAlreadyActive", func(t *testing.T) {
		second := &model.DiscoverySession{
			ID:         uuid.New(),
			Settings:   model.DefaultSessionSettings(),
			TotalUnits: 500,
		}

		err := handler.InsertSession(second)
		assert.ErrorIs(t, err, model.ErrSessionAlreadyActive)
	})

	t.Run("Paused session still blocks new sessions", func(t *testing.T) {
		err := handler.UpdateSessionStatus(first.ID, model.SessionPaused, "")
		require.NoError(t, err)

		second := &model.DiscoverySession{
			ID:         uuid.New(),
			Settings:   model.DefaultSessionSettings(),
			TotalUnits: 500,
		}
		err = handler.InsertSession(second)
		assert.ErrorIs(t, err, model.ErrSessionAlreadyActive)
	})

	t.Run("Completed session frees the active slot", func(t *testing.T) {
		err := handler.UpdateSessionStatus(first.ID, model.SessionCompleted, "")
		require.NoError(t, err)

		second := &model.DiscoverySession{
			ID:         uuid.New(),
			Settings:   model.DefaultSessionSettings(),
			TotalUnits: 500,
		}
		err = handler.InsertSession(second)
		assert.NoError(t, err)

		// Leave the slot free for the remaining tests.
		require.NoError(t, handler.UpdateSessionStatus(second.ID, model.SessionStopped, ""))
	})
}

func TestSessionProgressAndStatus(t *testing.T) {
	db := initDB(t)
	defer db.Close()
	handler, err := NewSessionsDBHandler(db, false)
	require.NoError(t, err)

	session := &model.DiscoverySession{
		ID:         uuid.New(),
		Settings:   model.DefaultSessionSettings(),
		TotalUnits: 100,
	}
	require.NoError(t, handler.InsertSession(session))
	defer func() {
		require.NoError(t, handler.UpdateSessionStatus(session.ID, model.SessionStopped, ""))
	}()

	t.Run("Progress snapshot persists counters", func(t *testing.T) {
		err := handler.UpdateSessionProgress(session.ID, 42, 3, 17, "sundara.15.20")
		assert.NoError(t, err)

		stored, err := handler.SelectSession(session.ID)
		require.NoError(t, err)
		assert.Equal(t, 42, stored.ProcessedUnits)
		assert.Equal(t, 3, stored.SkippedUnits)
		assert.Equal(t, 17, stored.EntitiesFound)
		assert.Equal(t, "sundara.15.20", stored.LastUnitID)
	})

	t.Run("Active session is queryable", func(t *testing.T) {
		active, err := handler.SelectActiveSession()
		assert.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, session.ID, active.ID)
	})

	t.Run("Error status records the failure", func(t *testing.T) {
		err := handler.UpdateSessionStatus(session.ID, model.SessionError, "storage unavailable")
		assert.NoError(t, err)

		stored, err := handler.SelectSession(session.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SessionError, stored.Status)
		assert.Equal(t, "storage unavailable", stored.LastError)
		assert.NotNil(t, stored.EndTime, "terminal statuses set the end time")

		active, err := handler.SelectActiveSession()
		assert.NoError(t, err)
		assert.Nil(t, active, "errored sessions do not hold the active slot")

		// Re-activate so the deferred stop has something to update.
		require.NoError(t, handler.UpdateSessionStatus(session.ID, model.SessionRunning, ""))
	})
}

func TestSelectRecentSessions(t *testing.T) {
	db := initDB(t)
	defer db.Close()
	handler, err := NewSessionsDBHandler(db, false)
	require.NoError(t, err)

	t.Run("Recent sessions are newest first", func(t *testing.T) {
		sessions, err := handler.SelectRecentSessions(10)
		assert.NoError(t, err)
		for i := 1; i < len(sessions); i++ {
			assert.False(t, sessions[i-1].StartTime.Before(sessions[i].StartTime),
				"sessions should be ordered by start time descending")
		}
	})
}
