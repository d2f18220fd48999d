package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseConfiguration(t *testing.T) {
	t.Run("ConnectionString includes all parameters", func(t *testing.T) {
		config := &DatabaseConfiguration{
			Host:     "localhost",
			Port:     "5432",
			User:     "granthika",
			Password: "secret",
			Name:     "granthika",
			SSLMode:  "disable",
		}

		assert.Equal(t,
			"host=localhost port=5432 user=granthika password=secret dbname=granthika sslmode=disable",
			config.ConnectionString())
	})

	t.Run("Missing required variables fail", func(t *testing.T) {
		t.Setenv("GRANTHIKA_DB_HOST", "")
		t.Setenv("GRANTHIKA_DB_PORT", "")
		t.Setenv("GRANTHIKA_DB_USER", "")
		t.Setenv("GRANTHIKA_DB_NAME", "")

		_, err := NewDatabaseConfiguration()
		assert.Error(t, err)
	})

	t.Run("SSLMode defaults to disable", func(t *testing.T) {
		SetTestDatabaseConfigEnvs(t, "5432")
		t.Setenv("GRANTHIKA_DB_SSLMODE", "")

		config, err := NewDatabaseConfiguration()
		require.NoError(t, err)
		assert.Equal(t, "disable", config.SSLMode)
	})
}

func TestDatabaseClose(t *testing.T) {
	t.Run("Close without an open connection is a no-op", func(t *testing.T) {
		db := &Database{Name: "test"}

		assert.NoError(t, db.Close())
	})
}
