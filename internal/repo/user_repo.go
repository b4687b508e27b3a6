package repo

import (
	"errors"

	"gorm.io/gorm"

	"qless-server/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(u *domain.User) error { return r.db.Create(u).Error }

// FindByID 未命中返回 (nil, nil)
func (r *UserRepo) FindByID(id string) (*domain.User, error) {
	var u domain.User
	err := r.db.First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) List() ([]domain.User, error) {
	var users []domain.User
	err := r.db.Find(&users).Error
	return users, err
}

// UpdateFields 针对单个用户的局部更新。
// 不能拿 RowsAffected 判断存在性：MySQL 下值没变化时 affected 也是 0。
func (r *UserRepo) UpdateFields(id string, fields map[string]any) error {
	var n int64
	if err := r.db.Model(&domain.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return gorm.ErrRecordNotFound
	}
	return r.db.Model(&domain.User{}).Where("id = ?", id).Updates(fields).Error
}
