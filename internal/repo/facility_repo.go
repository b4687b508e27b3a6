package repo

import (
	"errors"

	"gorm.io/gorm"

	"qless-server/internal/domain"
)

type FacilityRepo struct{ db *gorm.DB }

func NewFacilityRepo(db *gorm.DB) *FacilityRepo { return &FacilityRepo{db: db} }

// FindByID 不过滤 Active：软删除的记录同样占用 ID
func (r *FacilityRepo) FindByID(id string) (*domain.Facility, error) {
	var f domain.Facility
	err := r.db.First(&f, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FacilityRepo) List(includeInactive bool) ([]domain.Facility, error) {
	var out []domain.Facility
	q := r.db.Model(&domain.Facility{})
	if !includeInactive {
		q = q.Where("active = ?", true)
	}
	err := q.Order("name asc").Find(&out).Error
	return out, err
}

// UpdateFields 同 UserRepo：先查存在性，再做局部更新
func (r *FacilityRepo) UpdateFields(id string, fields map[string]any) error {
	var n int64
	if err := r.db.Model(&domain.Facility{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return gorm.ErrRecordNotFound
	}
	return r.db.Model(&domain.Facility{}).Where("id = ?", id).Updates(fields).Error
}
