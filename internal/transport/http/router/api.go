package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"qless-server/internal/core/auth"
	"qless-server/internal/domain"
	"qless-server/internal/service"
	httpez "qless-server/internal/transport/http/ez"
	mdw "qless-server/internal/transport/http/middleware"
	"qless-server/pkg/qr"
)

// Services 两个引擎共用的业务依赖
type Services struct {
	Directory *service.Directory
	Registry  *service.Registry
	Tracker   *service.Tracker
}

// NewAPIEngine 学生端引擎：注册/登录、设施查询、扫码签入签出
func NewAPIEngine(l *zap.Logger, db *gorm.DB, jwter *auth.JWTer, svc Services) *gin.Engine {
	r := gin.New()

	r.Use(
		cors.Default(),
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.RateLimitPerIP(50, 100),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
		mdw.SimpleRecovery(),
		mdw.Metrics(),
		mdw.AccessLog(l),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	mountAuthActions(api, db, jwter, svc)

	authed := api.Group("")
	authed.Use(mdw.AuthJWT(jwter, domain.RoleStudent))
	mountStudentActions(authed, db, svc)

	return r
}

func mountAuthActions(api *gin.RouterGroup, db *gorm.DB, jwter *auth.JWTer, svc Services) {
	ezPublic := httpez.New(api)

	type registerIn struct {
		Email    string `json:"email"    binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
		Name     string `json:"name"     binding:"required,max=64"`
	}
	type userOut struct {
		ID    string      `json:"id"`
		Email string      `json:"email"`
		Name  string      `json:"name"`
		Role  domain.Role `json:"role"`
	}
	httpez.RegisterAction[registerIn, userOut](ezPublic, db, httpez.Action[registerIn, userOut]{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ *gorm.DB, in *registerIn) (userOut, error) {
			u, err := svc.Directory.Register(in.Email, in.Password, in.Name)
			if err != nil {
				return userOut{}, svcErr(err)
			}
			return userOut{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}, nil
		},
	})

	type loginIn struct {
		Email    string `json:"email"    binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	type loginOut struct {
		Token string  `json:"token"`
		User  userOut `json:"user"`
	}
	httpez.RegisterAction[loginIn, loginOut](ezPublic, db, httpez.Action[loginIn, loginOut]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ *gorm.DB, in *loginIn) (loginOut, error) {
			u, err := svc.Directory.Authenticate(in.Email, in.Password)
			if err != nil {
				return loginOut{}, svcErr(err)
			}
			tok, err := jwter.Issue(u.ID, u.Role)
			if err != nil || tok == "" {
				return loginOut{}, httpez.Internal("issue token failed", err)
			}
			return loginOut{
				Token: tok,
				User:  userOut{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role},
			}, nil
		},
	})
}

func mountStudentActions(g *gin.RouterGroup, db *gorm.DB, svc Services) {
	ezAuth := httpez.New(g)

	ezAuth.GET("/me", func(c *gin.Context) (any, error) {
		u, err := svc.Directory.Get(c.GetString("userId"))
		if err != nil {
			return nil, svcErr(err)
		}
		return u, nil
	})

	// 当前签入的设施；未签入时 facilityId 为空串
	ezAuth.GET("/me/facility", func(c *gin.Context) (any, error) {
		fid, err := svc.Tracker.UserCurrentFacility(c, c.GetString("userId"))
		if err != nil {
			return nil, svcErr(err)
		}
		out := gin.H{"facilityId": fid, "checkedIn": fid != ""}
		if fid != "" {
			out["facilityName"] = svc.Registry.DisplayName(fid)
		}
		return out, nil
	})

	ezAuth.GET("/facilities", func(c *gin.Context) (any, error) {
		list, err := svc.Registry.List(false)
		if err != nil {
			return nil, svcErr(err)
		}
		return list, nil
	})

	ezAuth.GET("/facilities/:id", func(c *gin.Context) (any, error) {
		f, err := svc.Registry.Get(c.Param("id"))
		if err != nil {
			return nil, svcErr(err)
		}
		return f, nil
	})

	ezAuth.GET("/facilities/:id/stats", func(c *gin.Context) (any, error) {
		st, err := svc.Registry.Stats(c.Param("id"))
		if err != nil {
			return nil, svcErr(err)
		}
		return st, nil
	})

	// PNG 出图，不走统一 JSON 包装
	g.GET("/facilities/:id/qr", func(c *gin.Context) {
		id := c.Param("id")
		if _, err := svc.Registry.Get(id); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "facility not found"})
			return
		}
		png, err := qr.PNG(id, 256)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "qr render failed"})
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	})

	ezAuth.GET("/queues", func(c *gin.Context) (any, error) {
		statuses, err := svc.Tracker.AllStatuses(c)
		if err != nil {
			return nil, svcErr(err)
		}
		return statuses, nil
	})

	type checkinIn struct {
		Token      string `json:"token"`      // 扫码得到的 QLESS_CHECKIN:<id>
		FacilityID string `json:"facilityId"` // 或者直接传设施 ID
	}
	type countOut struct {
		FacilityID string `json:"facilityId"`
		Count      int    `json:"count"`
	}
	httpez.POST(ezAuth, "/checkin", func(c *gin.Context, in checkinIn) (any, error) {
		fid, err := resolveFacilityID(in.Token, in.FacilityID)
		if err != nil {
			return nil, err
		}
		u, err := svc.Directory.Get(c.GetString("userId"))
		if err != nil {
			return nil, svcErr(err)
		}
		count, err := svc.Tracker.Checkin(c, fid, u.ID, u.Name)
		if err != nil {
			return nil, svcErr(err)
		}
		return countOut{FacilityID: fid, Count: count}, nil
	})

	type checkoutIn struct {
		Token      string `json:"token"`
		FacilityID string `json:"facilityId"`
	}
	httpez.POST(ezAuth, "/checkout", func(c *gin.Context, in checkoutIn) (any, error) {
		fid, err := resolveFacilityID(in.Token, in.FacilityID)
		if err != nil {
			return nil, err
		}
		count, err := svc.Tracker.Checkout(c, fid, c.GetString("userId"))
		if err != nil {
			return nil, svcErr(err)
		}
		return countOut{FacilityID: fid, Count: count}, nil
	})
}

// resolveFacilityID 优先解析扫码令牌，否则用显式传入的 ID
func resolveFacilityID(token, facilityID string) (string, error) {
	if t := strings.TrimSpace(token); t != "" {
		fid, err := qr.Decode(t)
		if err != nil {
			return "", httpez.BadRequest(err.Error())
		}
		return fid, nil
	}
	if fid := strings.TrimSpace(facilityID); fid != "" {
		return fid, nil
	}
	return "", httpez.BadRequest("token or facilityId required")
}
