package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qless-server/internal/domain"
)

func TestCreateFacilityInitializesQueueState(t *testing.T) {
	reg, _, db := newTestStack(t)

	id := mustCreateFacility(t, reg, "Cafeteria Main", 50, 3)
	assert.Equal(t, "cafeteria_main", id)

	var qs domain.QueueState
	require.NoError(t, db.First(&qs, "facility_id = ?", id).Error)
	assert.Equal(t, 0, qs.Count)
}

func TestCreateFacilityRejectsOccupiedID(t *testing.T) {
	reg, _, _ := newTestStack(t)
	mustCreateFacility(t, reg, "Lab-3", 20, 5)

	// 同派生 ID（"Lab 3" 和 "Lab-3" 都落在 lab_3）
	_, err := reg.Create(CreateFacilityInput{Name: "Lab 3", Capacity: 10, AvgTimeMin: 2})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	// 软删除后 ID 仍被占用
	require.NoError(t, reg.SoftDelete("lab_3", "admin"))
	_, err = reg.Create(CreateFacilityInput{Name: "Lab 3", Capacity: 10, AvgTimeMin: 2})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestSoftDeleteRestoreListCycle(t *testing.T) {
	reg, _, _ := newTestStack(t)
	mustCreateFacility(t, reg, "Gym", 80, 10)
	mustCreateFacility(t, reg, "Cafeteria", 50, 3)

	require.NoError(t, reg.SoftDelete("gym", "admin"))

	active, err := reg.List(false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "cafeteria", active[0].ID)

	all, err := reg.List(true)
	require.NoError(t, err)
	require.Len(t, all, 2)
	// 名称升序
	assert.Equal(t, "cafeteria", all[0].ID)
	assert.Equal(t, "gym", all[1].ID)
	assert.False(t, all[1].Active)
	assert.NotNil(t, all[1].DeletedAt)
	assert.Equal(t, "admin", all[1].DeletedBy)

	require.NoError(t, reg.Restore("gym"))
	active, err = reg.List(false)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	g, err := reg.Get("gym")
	require.NoError(t, err)
	assert.True(t, g.Active)
	assert.NotNil(t, g.RestoredAt)
}

func TestUpdateMergesPartialFields(t *testing.T) {
	reg, _, _ := newTestStack(t)
	mustCreateFacility(t, reg, "Library", 100, 15)

	cap := 120
	desc := "renovated west wing"
	require.NoError(t, reg.Update("library", FacilityUpdate{Capacity: &cap, Description: &desc}, "admin"))

	f, err := reg.Get("library")
	require.NoError(t, err)
	assert.Equal(t, 120, f.Capacity)
	assert.Equal(t, "renovated west wing", f.Description)
	assert.Equal(t, 15, f.AvgTimeMin) // 没传的字段不动
	assert.Equal(t, "admin", f.UpdatedBy)

	assert.ErrorIs(t, reg.Update("nope", FacilityUpdate{Capacity: &cap}, "admin"), ErrNotFound)
	assert.ErrorIs(t, reg.SoftDelete("nope", "admin"), ErrNotFound)
	assert.ErrorIs(t, reg.Restore("nope"), ErrNotFound)
}

func TestStatsScenario(t *testing.T) {
	reg, trk, _ := newTestStack(t)
	id := mustCreateFacility(t, reg, "Cafeteria Main", 50, 3)

	// 20 个不同用户签入：容量 50、人均 3 分钟 → 40%、60 分钟、Moderate
	for i := 0; i < 20; i++ {
		_, err := trk.Checkin(t.Context(), id, userN(i), "Student")
		require.NoError(t, err)
	}

	st, err := reg.Stats(id)
	require.NoError(t, err)
	assert.Equal(t, 20, st.CurrentCount)
	assert.InDelta(t, 40.0, st.OccupancyPct, 1e-9)
	assert.Equal(t, 60, st.WaitMinutes)
	assert.Equal(t, "Moderate", st.Status.Text)

	_, err = reg.Stats("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOverview(t *testing.T) {
	reg, trk, _ := newTestStack(t)
	mustCreateFacility(t, reg, "Gym", 80, 10)
	id := mustCreateFacility(t, reg, "Cafeteria", 20, 3)

	for i := 0; i < 5; i++ {
		_, err := trk.Checkin(t.Context(), id, userN(i), "Student")
		require.NoError(t, err)
	}

	o, err := reg.Overview()
	require.NoError(t, err)
	assert.Equal(t, 2, o.Facilities)
	assert.Equal(t, 100, o.TotalCapacity)
	assert.Equal(t, 5, o.ActiveUsers)
	assert.InDelta(t, 5.0, o.OccupancyPct, 1e-9)
}

func TestDisplayName(t *testing.T) {
	reg, _, _ := newTestStack(t)
	mustCreateFacility(t, reg, "Cafeteria", 50, 3)
	assert.Equal(t, "🍽️ Cafeteria", reg.DisplayName("cafeteria"))
	// 找不到退回 ID
	assert.Equal(t, "ghost", reg.DisplayName("ghost"))
}
