package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnect(t *testing.T) {
	t.Run("Invalid Connection", func(t *testing.T) {
		cfg := Config{
			Driver:         DriverMySQL,
			Host:           "localhost",
			Port:           9999, // Unused port
			User:           "root",
			Password:       "wrongpassword",
			Name:           "collection_mapper",
			TimeoutSeconds: 1,
		}

		db, err := Connect(cfg)
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("SQLite In Memory", func(t *testing.T) {
		db, err := Connect(Config{Driver: DriverSQLite, Name: ":memory:"})
		assert.NoError(t, err)
		assert.NotNil(t, db)

		// A single connection keeps every query on the same in-memory database
		assert.NoError(t, db.Exec("CREATE TABLE scratch (id INTEGER)").Error)
		assert.NoError(t, db.Exec("INSERT INTO scratch (id) VALUES (1)").Error)
		var count int64
		assert.NoError(t, db.Table("scratch").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Unsupported Driver", func(t *testing.T) {
		db, err := Connect(Config{Driver: "oracle"})
		assert.ErrorContains(t, err, `unsupported database driver "oracle"`)
		assert.Nil(t, db)
	})
}
