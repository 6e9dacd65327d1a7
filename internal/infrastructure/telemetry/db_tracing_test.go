package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestRegisterGormTracing(t *testing.T) {
	recorder := useSpanRecorder(t)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, RegisterGormTracing(db, "marketsync"))

	var n int
	require.NoError(t, db.Raw("SELECT 1").Scan(&n).Error)
	assert.Equal(t, 1, n)

	assert.NotEmpty(t, recorder.Ended())

	// a plugin registers once per db
	assert.Error(t, RegisterGormTracing(db, "marketsync"))
}
