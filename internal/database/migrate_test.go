package database_test

import (
	"io/fs"
	"testing"

	"github.com/mealmate/server/internal/config"
	"github.com/mealmate/server/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource(t *testing.T) {
	for _, driver := range []string{config.DriverMySQL, config.DriverPostgres} {
		t.Run(driver, func(t *testing.T) {
			src, err := database.Source(driver)
			require.NoError(t, err)
			defer src.Close()

			first, err := src.First()
			require.NoError(t, err)
			assert.Equal(t, uint(1), first)

			up, identifier, err := src.ReadUp(first)
			require.NoError(t, err)
			defer up.Close()
			assert.Equal(t, "create_user", identifier)

			down, _, err := src.ReadDown(first)
			require.NoError(t, err)
			down.Close()
		})
	}
}

func TestSource_UnknownDriver(t *testing.T) {
	_, err := database.Source(config.DriverMemory)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
