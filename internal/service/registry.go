package service

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"qless-server/internal/domain"
	"qless-server/internal/repo"
)

// Registry 设施登记簿：配置 CRUD（软删除）+ 展示统计
type Registry struct {
	db         *gorm.DB
	facilities *repo.FacilityRepo
}

func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db, facilities: repo.NewFacilityRepo(db)}
}

type CreateFacilityInput struct {
	Name        string
	Capacity    int
	Icon        string
	AvgTimeMin  int
	OpenStart   int
	OpenEnd     int
	Description string
	ActorID     string
}

// Create ID 由名称派生；软删除的记录同样占用 ID，不允许重建。
// 同一事务里初始化计数为 0 的 QueueState。
func (s *Registry) Create(in CreateFacilityInput) (string, error) {
	id := domain.DeriveFacilityID(in.Name)

	existing, err := s.facilities.FindByID(id)
	if err != nil {
		return "", fmt.Errorf("lookup facility: %w", err)
	}
	if existing != nil {
		return "", ErrAlreadyExists
	}

	f := &domain.Facility{
		ID:          id,
		Name:        in.Name,
		Capacity:    in.Capacity,
		Icon:        in.Icon,
		AvgTimeMin:  in.AvgTimeMin,
		OpenStart:   in.OpenStart,
		OpenEnd:     in.OpenEnd,
		Description: in.Description,
		Active:      true,
		CreatedBy:   in.ActorID,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(f).Error; err != nil {
			return err
		}
		return tx.Create(&domain.QueueState{
			FacilityID:  id,
			Count:       0,
			LastUpdated: time.Now(),
		}).Error
	})
	if err != nil {
		if isDupKey(err) {
			return "", ErrAlreadyExists
		}
		return "", fmt.Errorf("create facility: %w", err)
	}
	return id, nil
}

func (s *Registry) Get(id string) (*domain.Facility, error) {
	f, err := s.facilities.FindByID(id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrNotFound
	}
	return f, nil
}

func (s *Registry) List(includeInactive bool) ([]domain.Facility, error) {
	return s.facilities.List(includeInactive)
}

// FacilityUpdate 局部更新，nil 字段不动
type FacilityUpdate struct {
	Name        *string
	Capacity    *int
	Icon        *string
	AvgTimeMin  *int
	OpenStart   *int
	OpenEnd     *int
	Description *string
}

func (s *Registry) Update(id string, up FacilityUpdate, actorID string) error {
	fields := map[string]any{"updated_by": actorID}
	if up.Name != nil {
		fields["name"] = *up.Name
	}
	if up.Capacity != nil {
		fields["capacity"] = *up.Capacity
	}
	if up.Icon != nil {
		fields["icon"] = *up.Icon
	}
	if up.AvgTimeMin != nil {
		fields["avg_time_min"] = *up.AvgTimeMin
	}
	if up.OpenStart != nil {
		fields["open_start"] = *up.OpenStart
	}
	if up.OpenEnd != nil {
		fields["open_end"] = *up.OpenEnd
	}
	if up.Description != nil {
		fields["description"] = *up.Description
	}
	return asNotFound(s.facilities.UpdateFields(id, fields))
}

// SoftDelete 只打标记，QueueState/ActiveCheckin/历史都不动
func (s *Registry) SoftDelete(id, actorID string) error {
	now := time.Now()
	return asNotFound(s.facilities.UpdateFields(id, map[string]any{
		"active":     false,
		"deleted_at": now,
		"deleted_by": actorID,
	}))
}

func (s *Registry) Restore(id string) error {
	now := time.Now()
	return asNotFound(s.facilities.UpdateFields(id, map[string]any{
		"active":      true,
		"restored_at": now,
	}))
}

// Stats 当前计数 + 设施配置 → 展示数据。容量为 0 时占用率记 0。
func (s *Registry) Stats(id string) (*domain.FacilityStats, error) {
	f, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	var qs domain.QueueState
	if err := s.db.First(&qs, "facility_id = ?", id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load queue state: %w", err)
		}
		qs = domain.QueueState{FacilityID: id, LastUpdated: time.Now()}
	}

	var pct float64
	if f.Capacity > 0 {
		pct = float64(qs.Count) / float64(f.Capacity) * 100
	}
	return &domain.FacilityStats{
		CurrentCount: qs.Count,
		Capacity:     f.Capacity,
		OccupancyPct: pct,
		WaitMinutes:  qs.Count * f.AvgTimeMin,
		Status:       domain.BucketFor(qs.Count, f.Capacity),
		LastUpdated:  qs.LastUpdated,
	}, nil
}

// Overview 管理端大盘汇总
type Overview struct {
	Facilities    int     `json:"facilities"`
	TotalCapacity int     `json:"totalCapacity"`
	ActiveUsers   int     `json:"activeUsers"`
	OccupancyPct  float64 `json:"occupancyPct"`
}

func (s *Registry) Overview() (*Overview, error) {
	facilities, err := s.facilities.List(false)
	if err != nil {
		return nil, err
	}
	var o Overview
	o.Facilities = len(facilities)
	for _, f := range facilities {
		o.TotalCapacity += f.Capacity
		var qs domain.QueueState
		if err := s.db.First(&qs, "facility_id = ?", f.ID).Error; err == nil {
			o.ActiveUsers += qs.Count
		}
	}
	if o.TotalCapacity > 0 {
		o.OccupancyPct = float64(o.ActiveUsers) / float64(o.TotalCapacity) * 100
	}
	return &o, nil
}

// DisplayName 找不到时退回 ID
func (s *Registry) DisplayName(id string) string {
	f, err := s.facilities.FindByID(id)
	if err != nil || f == nil {
		return id
	}
	return f.DisplayName()
}
