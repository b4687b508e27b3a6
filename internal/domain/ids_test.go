package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveUserID(t *testing.T) {
	assert.Equal(t, "john_doe", DeriveUserID("john.doe@campus.edu"))
	assert.Equal(t, "jane", DeriveUserID("jane@campus.edu"))
	// 确定性：同邮箱永远同 ID
	assert.Equal(t, DeriveUserID("a.b.c@x.edu"), DeriveUserID("a.b.c@x.edu"))
	assert.Equal(t, "a_b_c", DeriveUserID("a.b.c@x.edu"))
	// 没有 @ 也不崩
	assert.Equal(t, "plain", DeriveUserID("plain"))
}

func TestDeriveFacilityID(t *testing.T) {
	assert.Equal(t, "cafeteria_main", DeriveFacilityID("Cafeteria Main"))
	assert.Equal(t, "lab_3", DeriveFacilityID("Lab-3"))
	assert.Equal(t, "study_hall_b", DeriveFacilityID("Study Hall-B"))
}

func TestRoleRank(t *testing.T) {
	roles := []Role{RoleStudent, RoleAdmin, RoleSuperAdmin}
	for i, lower := range roles {
		for _, higher := range roles[i:] {
			assert.True(t, higher.AtLeast(lower), "%s should satisfy %s", higher, lower)
		}
	}
	assert.False(t, RoleStudent.AtLeast(RoleAdmin))
	assert.False(t, RoleAdmin.AtLeast(RoleSuperAdmin))
	// 未知角色不满足任何等级
	assert.False(t, Role("ghost").AtLeast(RoleStudent))
	assert.False(t, Role("ghost").Valid())
}

func TestBucketFor(t *testing.T) {
	assert.Equal(t, "low", BucketFor(0, 50).Level)
	assert.Equal(t, "low", BucketFor(19, 50).Level)     // 38%
	assert.Equal(t, "moderate", BucketFor(20, 50).Level) // 40%
	assert.Equal(t, "moderate", BucketFor(34, 50).Level) // 68%
	assert.Equal(t, "high", BucketFor(35, 50).Level)     // 70%
	assert.Equal(t, "high", BucketFor(60, 50).Level)     // 超容量也只是 high
	// 容量 0 记 0%
	assert.Equal(t, "low", BucketFor(5, 0).Level)
}
