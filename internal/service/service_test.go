package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"qless-server/internal/core/config"
	"qless-server/internal/domain"
)

// 每个用例一个独立的内存库；单连接避免 sqlite 内存库按连接隔离
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&domain.User{},
		&domain.Facility{},
		&domain.QueueState{},
		&domain.ActiveCheckin{},
		&domain.HistoryEntry{},
	))
	return db
}

func newTestDirectory(t *testing.T, allowlist ...string) (*Directory, *gorm.DB) {
	db := newTestDB(t)
	return NewDirectory(db, config.Auth{
		SuperAdminEmails:  allowlist,
		SessionTimeoutMin: 30,
	}), db
}

func newTestStack(t *testing.T) (*Registry, *Tracker, *gorm.DB) {
	db := newTestDB(t)
	reg := NewRegistry(db)
	return reg, NewTracker(db, reg, nil, 0), db
}

func userN(i int) string { return fmt.Sprintf("user_%02d", i) }

func mustCreateFacility(t *testing.T, reg *Registry, name string, capacity, avgMin int) string {
	t.Helper()
	id, err := reg.Create(CreateFacilityInput{
		Name:       name,
		Capacity:   capacity,
		Icon:       "🍽️",
		AvgTimeMin: avgMin,
		OpenStart:  8,
		OpenEnd:    22,
		ActorID:    "seed",
	})
	require.NoError(t, err)
	return id
}
