package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"qless-server/internal/domain"
	"qless-server/internal/service"
	resp "qless-server/internal/transport/http/response"
)

// UserAdminHandler 管理端的用户管理
type UserAdminHandler struct {
	dir *service.Directory
}

func NewUserAdminHandler(dir *service.Directory) *UserAdminHandler {
	return &UserAdminHandler{dir: dir}
}

func (h *UserAdminHandler) List(c *gin.Context) {
	users, err := h.dir.List()
	if err != nil {
		c.JSON(http.StatusOK, resp.Error(resp.CodeServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, resp.OK(gin.H{"total": len(users), "items": users}))
}

// SetRole 只有超管可以改角色；等级门禁由路由分组的中间件保证
func (h *UserAdminHandler) SetRole(c *gin.Context) {
	var in struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
		return
	}
	role, ok := domain.ParseRole(in.Role)
	if !ok {
		c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, "unknown role"))
		return
	}
	if err := h.dir.SetRole(c.Param("id"), role); err != nil {
		writeSvcErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.OK(gin.H{"id": c.Param("id"), "role": role}))
}

func (h *UserAdminHandler) SetActive(c *gin.Context) {
	var in struct {
		Active *bool `json:"active"` // 缺省时做开关切换
	}
	if err := c.ShouldBindJSON(&in); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
		return
	}

	id := c.Param("id")
	var (
		next bool
		err  error
	)
	if in.Active != nil {
		next = *in.Active
		err = h.dir.SetActive(id, next)
	} else {
		next, err = h.dir.ToggleActive(id)
	}
	if err != nil {
		writeSvcErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.OK(gin.H{"id": id, "active": next}))
}

func writeSvcErr(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusOK, resp.Error(resp.CodeNotFound, "user not found"))
		return
	}
	c.JSON(http.StatusOK, resp.Error(resp.CodeServerError, err.Error()))
}
