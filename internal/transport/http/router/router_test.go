package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"qless-server/internal/core/auth"
	"qless-server/internal/core/config"
	"qless-server/internal/domain"
	"qless-server/internal/service"
	"qless-server/internal/transport/http/handler"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func setupStack(t *testing.T) (*gorm.DB, *auth.JWTer, Services) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&domain.User{}, &domain.Facility{}, &domain.QueueState{},
		&domain.ActiveCheckin{}, &domain.HistoryEntry{},
	))

	jwter := &auth.JWTer{Secret: []byte("test-secret"), Issuer: "qless", TTL: 30 * time.Minute}
	registry := service.NewRegistry(db)
	svc := Services{
		Directory: service.NewDirectory(db, config.Auth{SessionTimeoutMin: 30}),
		Registry:  registry,
		Tracker:   service.NewTracker(db, registry, nil, 0),
	}
	return db, jwter, svc
}

func doJSON(t *testing.T, r http.Handler, method, path, token string, body any) envelope {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestRegisterLoginCheckinFlow(t *testing.T) {
	db, jwter, svc := setupStack(t)
	r := NewAPIEngine(zap.NewNop(), db, jwter, svc)

	env := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "john.doe@campus.edu", "password": "secret123", "name": "John Doe",
	})
	require.Equal(t, 0, env.Code, env.Msg)

	// 重复注册 → 409
	env = doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "john.doe@campus.edu", "password": "otherpass", "name": "J",
	})
	assert.Equal(t, 409, env.Code)

	// 密码太短在参数校验就被拦下，不会进到重复判断
	env = doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "someone.else@campus.edu", "password": "short", "name": "S",
	})
	assert.Equal(t, 400, env.Code)

	env = doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "john.doe@campus.edu", "password": "secret123",
	})
	require.Equal(t, 0, env.Code, env.Msg)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(t, login.Token)

	// 无令牌 → 401
	env = doJSON(t, r, http.MethodGet, "/api/v1/me", "", nil)
	assert.Equal(t, 401, env.Code)

	env = doJSON(t, r, http.MethodGet, "/api/v1/me", login.Token, nil)
	require.Equal(t, 0, env.Code)

	// 签入走扫码令牌
	id, err := svc.Registry.Create(service.CreateFacilityInput{
		Name: "Cafeteria Main", Capacity: 50, AvgTimeMin: 3, OpenStart: 8, OpenEnd: 22,
	})
	require.NoError(t, err)

	env = doJSON(t, r, http.MethodPost, "/api/v1/checkin", login.Token, gin.H{
		"token": "QLESS_CHECKIN:" + id,
	})
	require.Equal(t, 0, env.Code, env.Msg)
	var out struct {
		FacilityID string `json:"facilityId"`
		Count      int    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, id, out.FacilityID)
	assert.Equal(t, 1, out.Count)

	// 坏令牌 → 400
	env = doJSON(t, r, http.MethodPost, "/api/v1/checkin", login.Token, gin.H{"token": "garbage"})
	assert.Equal(t, 400, env.Code)

	// 重复签入 → 409
	env = doJSON(t, r, http.MethodPost, "/api/v1/checkin", login.Token, gin.H{"facilityId": id})
	assert.Equal(t, 409, env.Code)

	env = doJSON(t, r, http.MethodGet, "/api/v1/me/facility", login.Token, nil)
	require.Equal(t, 0, env.Code)
	var cur struct {
		FacilityID string `json:"facilityId"`
		CheckedIn  bool   `json:"checkedIn"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &cur))
	assert.True(t, cur.CheckedIn)
	assert.Equal(t, id, cur.FacilityID)

	env = doJSON(t, r, http.MethodPost, "/api/v1/checkout", login.Token, gin.H{"facilityId": id})
	require.Equal(t, 0, env.Code, env.Msg)
}

func TestQRImageEndpoint(t *testing.T) {
	db, jwter, svc := setupStack(t)
	r := NewAPIEngine(zap.NewNop(), db, jwter, svc)

	id, err := svc.Registry.Create(service.CreateFacilityInput{
		Name: "Lab-3", Capacity: 20, AvgTimeMin: 5, OpenStart: 8, OpenEnd: 20,
	})
	require.NoError(t, err)

	tok, err := jwter.Issue("someone", domain.RoleStudent)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/facilities/"+id+"/qr", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestAdminRoleGates(t *testing.T) {
	db, jwter, svc := setupStack(t)
	usersH := handler.NewUserAdminHandler(svc.Directory)
	r := NewAdminEngine(zap.NewNop(), db, jwter, svc, usersH)

	studentTok, err := jwter.Issue("stu", domain.RoleStudent)
	require.NoError(t, err)
	adminTok, err := jwter.Issue("adm", domain.RoleAdmin)
	require.NoError(t, err)
	superTok, err := jwter.Issue("root", domain.RoleSuperAdmin)
	require.NoError(t, err)

	// 学生进不了管理端
	env := doJSON(t, r, http.MethodGet, "/admin/v1/overview", studentTok, nil)
	assert.Equal(t, 403, env.Code)

	// admin 建设施
	env = doJSON(t, r, http.MethodPost, "/admin/v1/facilities", adminTok, gin.H{
		"name": "Gym", "capacity": 80, "avgTimeMin": 10, "openStart": 6, "openEnd": 23,
	})
	require.Equal(t, 0, env.Code, env.Msg)

	// 软删除 → 恢复
	env = doJSON(t, r, http.MethodDelete, "/admin/v1/facilities/gym", adminTok, nil)
	require.Equal(t, 0, env.Code, env.Msg)
	env = doJSON(t, r, http.MethodPost, "/admin/v1/facilities/gym/restore", adminTok, nil)
	require.Equal(t, 0, env.Code, env.Msg)

	// 改角色只放给超管
	_, err = svc.Directory.Register("sam@campus.edu", "secret123", "Sam")
	require.NoError(t, err)
	env = doJSON(t, r, http.MethodPut, "/admin/v1/users/sam/role", adminTok, gin.H{"role": "admin"})
	assert.Equal(t, 403, env.Code)
	env = doJSON(t, r, http.MethodPut, "/admin/v1/users/sam/role", superTok, gin.H{"role": "admin"})
	require.Equal(t, 0, env.Code, env.Msg)

	// reset 队列
	env = doJSON(t, r, http.MethodPost, "/admin/v1/facilities/gym/reset", adminTok, nil)
	require.Equal(t, 0, env.Code, env.Msg)

	env = doJSON(t, r, http.MethodGet, "/admin/v1/facilities/gym/history?limit=10", adminTok, nil)
	require.Equal(t, 0, env.Code, env.Msg)
}
