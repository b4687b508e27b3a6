package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"qless-server/internal/core/config"
	"qless-server/internal/domain"
	"qless-server/internal/repo"
	"qless-server/pkg/utils"
)

// Directory 账号目录：注册、认证、角色与启停
type Directory struct {
	db    *gorm.DB
	users *repo.UserRepo
	auth  config.Auth
}

func NewDirectory(db *gorm.DB, authCfg config.Auth) *Directory {
	return &Directory{db: db, users: repo.NewUserRepo(db), auth: authCfg}
}

// Register 新建账号，ID 由邮箱派生；同 ID 已存在返回 ErrDuplicateUser
func (d *Directory) Register(email, password, name string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	id := domain.DeriveUserID(email)

	existing, err := d.users.FindByID(id)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateUser
	}

	u := &domain.User{
		ID:           id,
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: utils.HashPassword(password),
		Role:         domain.RoleStudent,
		Active:       true,
	}
	if err := d.users.Create(u); err != nil {
		// 并发注册撞唯一键也算重复
		if isDupKey(err) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Authenticate 登录校验。成功的副作用：白名单邮箱提为超管（落库）、
// 刷新 last_login。
func (d *Directory) Authenticate(email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	id := domain.DeriveUserID(email)

	u, err := d.users.FindByID(id)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		return nil, ErrNotFound
	}
	if !u.Active {
		return nil, ErrDisabled
	}
	if !utils.CheckPassword(password, u.PasswordHash) {
		return nil, ErrInvalidPassword
	}

	now := time.Now()
	fields := map[string]any{"last_login": now}
	if d.auth.IsSuperAdminEmail(email) && u.Role != domain.RoleSuperAdmin {
		u.Role = domain.RoleSuperAdmin
		fields["role"] = domain.RoleSuperAdmin
	}
	if err := d.users.UpdateFields(id, fields); err != nil {
		return nil, fmt.Errorf("stamp login: %w", err)
	}
	u.LastLogin = &now
	return u, nil
}

func (d *Directory) Get(id string) (*domain.User, error) {
	u, err := d.users.FindByID(id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}

func (d *Directory) SetRole(id string, role domain.Role) error {
	return asNotFound(d.users.UpdateFields(id, map[string]any{"role": role}))
}

func (d *Directory) SetActive(id string, active bool) error {
	return asNotFound(d.users.UpdateFields(id, map[string]any{"active": active}))
}

// ToggleActive 启停开关，返回切换后的状态
func (d *Directory) ToggleActive(id string) (bool, error) {
	u, err := d.users.FindByID(id)
	if err != nil {
		return false, err
	}
	if u == nil {
		return false, ErrNotFound
	}
	next := !u.Active
	if err := d.users.UpdateFields(id, map[string]any{"active": next}); err != nil {
		return false, asNotFound(err)
	}
	return next, nil
}

func (d *Directory) List() ([]domain.User, error) { return d.users.List() }

func asNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func isDupKey(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation") ||
		strings.Contains(msg, "unique failed") ||
		strings.Contains(msg, "duplicate key")
}
