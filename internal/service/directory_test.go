package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qless-server/internal/domain"
)

func TestRegisterDerivesIDAndRejectsDuplicate(t *testing.T) {
	dir, _ := newTestDirectory(t)

	u, err := dir.Register("john.doe@campus.edu", "secret123", "John Doe")
	require.NoError(t, err)
	assert.Equal(t, "john_doe", u.ID)
	assert.Equal(t, domain.RoleStudent, u.Role)
	assert.True(t, u.Active)
	assert.Equal(t, 0, u.Points)

	// 同派生 ID 再注册必须拒绝，密码/名字不同也一样
	_, err = dir.Register("john.doe@campus.edu", "other-pass", "Johnny")
	assert.ErrorIs(t, err, ErrDuplicateUser)
}

func TestAuthenticate(t *testing.T) {
	dir, _ := newTestDirectory(t)
	_, err := dir.Register("jane@campus.edu", "secret123", "Jane")
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		u, err := dir.Authenticate("jane@campus.edu", "secret123")
		require.NoError(t, err)
		assert.Equal(t, "jane", u.ID)
		assert.NotNil(t, u.LastLogin)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := dir.Authenticate("nobody@campus.edu", "secret123")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := dir.Authenticate("jane@campus.edu", "wrong")
		assert.ErrorIs(t, err, ErrInvalidPassword)
	})

	t.Run("disabled account", func(t *testing.T) {
		require.NoError(t, dir.SetActive("jane", false))
		_, err := dir.Authenticate("jane@campus.edu", "secret123")
		assert.ErrorIs(t, err, ErrDisabled)
		require.NoError(t, dir.SetActive("jane", true))
	})
}

func TestAuthenticateEscalatesAllowlistedEmail(t *testing.T) {
	dir, _ := newTestDirectory(t, "boss@campus.edu")
	_, err := dir.Register("boss@campus.edu", "secret123", "Boss")
	require.NoError(t, err)

	u, err := dir.Authenticate("boss@campus.edu", "secret123")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSuperAdmin, u.Role)

	// 提权要落库，不是只在返回值里
	again, err := dir.Get("boss")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSuperAdmin, again.Role)
}

func TestSetRoleAndToggleActive(t *testing.T) {
	dir, _ := newTestDirectory(t)
	_, err := dir.Register("sam@campus.edu", "secret123", "Sam")
	require.NoError(t, err)

	require.NoError(t, dir.SetRole("sam", domain.RoleAdmin))
	u, err := dir.Get("sam")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)

	next, err := dir.ToggleActive("sam")
	require.NoError(t, err)
	assert.False(t, next)
	next, err = dir.ToggleActive("sam")
	require.NoError(t, err)
	assert.True(t, next)

	assert.ErrorIs(t, dir.SetRole("ghost", domain.RoleAdmin), ErrNotFound)
	assert.ErrorIs(t, dir.SetActive("ghost", false), ErrNotFound)
	_, err = dir.ToggleActive("ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListUsers(t *testing.T) {
	dir, _ := newTestDirectory(t)
	for _, e := range []string{"a@x.edu", "b@x.edu", "c@x.edu"} {
		_, err := dir.Register(e, "secret123", "U")
		require.NoError(t, err)
	}
	users, err := dir.List()
	require.NoError(t, err)
	assert.Len(t, users, 3)
}
