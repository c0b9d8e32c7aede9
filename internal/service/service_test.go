package service

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wavelens/gradient/internal/model"
	"github.com/wavelens/gradient/internal/pkg/config"
	applog "github.com/wavelens/gradient/internal/pkg/logger"
)

const testAESKey = "0123456789abcdef0123456789abcdef"

// newTestDB opens a fresh in-memory database and installs a test config.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	config.GlobalConfig = &config.Config{
		Auth: config.AuthConfig{
			JWT: config.JWTConfig{Secret: "test-secret", AccessTokenExpire: 3600},
		},
		Crypto: config.CryptoConfig{AESKey: testAESKey},
	}
	require.NoError(t, applog.Init(&config.LogConfig{Level: "error", Format: "console", Output: "stdout"}))

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, model.AutoMigrate(db))
	return db
}
