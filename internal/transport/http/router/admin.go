package router

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"qless-server/internal/core/auth"
	"qless-server/internal/domain"
	"qless-server/internal/service"
	httpez "qless-server/internal/transport/http/ez"
	"qless-server/internal/transport/http/handler"
	mdw "qless-server/internal/transport/http/middleware"
)

// NewAdminEngine 管理端引擎：设施 CRUD、队列运维、用户管理。
// 整个 /admin/v1 统一要求 admin 及以上，改角色单独要求超管。
func NewAdminEngine(l *zap.Logger, db *gorm.DB, jwter *auth.JWTer, svc Services, users *handler.UserAdminHandler) *gin.Engine {
	r := gin.New()

	r.Use(
		cors.Default(),
		mdw.RequestID(),
		mdw.RateLimit(100, 200),
		mdw.ConcurrencyLimit(100),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
		ginzap.RecoveryWithZap(l, true),
		mdw.Metrics(),
		ginzap.Ginzap(l, time.RFC3339, true),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })

	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(jwter, domain.RoleAdmin))

	mountFacilityActions(admin, db, svc)
	mountQueueActions(admin, db, svc)

	// 用户管理
	admin.GET("/users", users.List)
	admin.PUT("/users/:id/active", users.SetActive)

	// 改角色只放给超管
	super := r.Group("/admin/v1")
	super.Use(mdw.AuthJWT(jwter, domain.RoleSuperAdmin))
	super.PUT("/users/:id/role", users.SetRole)

	return r
}

func mountFacilityActions(admin *gin.RouterGroup, db *gorm.DB, svc Services) {
	ezAdmin := httpez.New(admin)

	type createIn struct {
		Name        string `json:"name"        binding:"required,max=100"`
		Capacity    int    `json:"capacity"    binding:"required,gt=0"`
		Icon        string `json:"icon"        binding:"omitempty,max=16"`
		AvgTimeMin  int    `json:"avgTimeMin"  binding:"required,gt=0"`
		OpenStart   int    `json:"openStart"   binding:"min=0,max=23"`
		OpenEnd     int    `json:"openEnd"     binding:"min=0,max=23,gtfield=OpenStart"`
		Description string `json:"description" binding:"omitempty,max=500"`
	}
	type createOut struct {
		ID string `json:"id"`
	}
	httpez.RegisterAction[createIn, createOut](ezAdmin, db, httpez.Action[createIn, createOut]{
		Method: http.MethodPost,
		Path:   "/facilities",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ *gorm.DB, in *createIn) (createOut, error) {
			id, err := svc.Registry.Create(service.CreateFacilityInput{
				Name:        in.Name,
				Capacity:    in.Capacity,
				Icon:        in.Icon,
				AvgTimeMin:  in.AvgTimeMin,
				OpenStart:   in.OpenStart,
				OpenEnd:     in.OpenEnd,
				Description: in.Description,
				ActorID:     c.GetString("userId"),
			})
			if err != nil {
				return createOut{}, svcErr(err)
			}
			return createOut{ID: id}, nil
		},
	})

	ezAdmin.GET("/facilities", func(c *gin.Context) (any, error) {
		includeInactive := c.Query("with_inactive") == "true"
		list, err := svc.Registry.List(includeInactive)
		if err != nil {
			return nil, svcErr(err)
		}
		return list, nil
	})

	type updateIn struct {
		Name        *string `json:"name"`
		Capacity    *int    `json:"capacity"    binding:"omitempty,gt=0"`
		Icon        *string `json:"icon"`
		AvgTimeMin  *int    `json:"avgTimeMin"  binding:"omitempty,gt=0"`
		OpenStart   *int    `json:"openStart"   binding:"omitempty,min=0,max=23"`
		OpenEnd     *int    `json:"openEnd"     binding:"omitempty,min=0,max=23"`
		Description *string `json:"description" binding:"omitempty,max=500"`
	}
	httpez.RegisterAction[updateIn, gin.H](ezAdmin, db, httpez.Action[updateIn, gin.H]{
		Method: http.MethodPut,
		Path:   "/facilities/:id",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ *gorm.DB, in *updateIn) (gin.H, error) {
			id := c.Param("id")
			err := svc.Registry.Update(id, service.FacilityUpdate{
				Name:        in.Name,
				Capacity:    in.Capacity,
				Icon:        in.Icon,
				AvgTimeMin:  in.AvgTimeMin,
				OpenStart:   in.OpenStart,
				OpenEnd:     in.OpenEnd,
				Description: in.Description,
			}, c.GetString("userId"))
			if err != nil {
				return nil, svcErr(err)
			}
			return gin.H{"id": id}, nil
		},
	})

	httpez.RegisterAction[struct{}, gin.H](ezAdmin, db, httpez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/facilities/:id",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			if err := svc.Registry.SoftDelete(id, c.GetString("userId")); err != nil {
				return nil, svcErr(err)
			}
			return gin.H{"id": id, "active": false}, nil
		},
	})

	httpez.RegisterAction[struct{}, gin.H](ezAdmin, db, httpez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/facilities/:id/restore",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			if err := svc.Registry.Restore(id); err != nil {
				return nil, svcErr(err)
			}
			return gin.H{"id": id, "active": true}, nil
		},
	})
}

func mountQueueActions(admin *gin.RouterGroup, db *gorm.DB, svc Services) {
	ezAdmin := httpez.New(admin)

	ezAdmin.GET("/overview", func(c *gin.Context) (any, error) {
		o, err := svc.Registry.Overview()
		if err != nil {
			return nil, svcErr(err)
		}
		return o, nil
	})

	httpez.RegisterAction[struct{}, gin.H](ezAdmin, db, httpez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/facilities/:id/reset",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			if err := svc.Tracker.Reset(c, id, c.GetString("userId")); err != nil {
				return nil, svcErr(err)
			}
			return gin.H{"id": id, "count": 0}, nil
		},
	})

	ezAdmin.GET("/facilities/:id/active", func(c *gin.Context) (any, error) {
		users, err := svc.Tracker.ActiveUsers(c, c.Param("id"))
		if err != nil {
			return nil, svcErr(err)
		}
		return gin.H{"total": len(users), "items": users}, nil
	})

	ezAdmin.GET("/facilities/:id/history", func(c *gin.Context) (any, error) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		entries, err := svc.Tracker.History(c, c.Param("id"), limit)
		if err != nil {
			return nil, svcErr(err)
		}
		return gin.H{"total": len(entries), "items": entries}, nil
	})
}
