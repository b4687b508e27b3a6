package domain

import "time"

// Facility 设施记录。ID 由名称派生（见 DeriveFacilityID），删除为软删除：
// Active=false，未恢复前 ID 保持占用，不允许同名重建。
// DeletedAt 为普通指针字段（不是 gorm.DeletedAt），软删除语义由 Active 驱动。
type Facility struct {
	ID          string     `gorm:"primaryKey;size:64" json:"id"`
	Name        string     `gorm:"size:100;not null" json:"name"`
	Capacity    int        `gorm:"not null" json:"capacity"`
	Icon        string     `gorm:"size:16" json:"icon"`
	AvgTimeMin  int        `gorm:"not null" json:"avgTimeMin"`
	OpenStart   int        `gorm:"not null" json:"openStart"` // 开放时段 [0,23]
	OpenEnd     int        `gorm:"not null" json:"openEnd"`
	Description string     `gorm:"size:500" json:"description"`
	Active      bool       `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	CreatedBy   string     `gorm:"size:64" json:"createdBy"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
	UpdatedBy   string     `gorm:"size:64" json:"updatedBy,omitempty"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
	DeletedBy   string     `gorm:"size:64" json:"deletedBy,omitempty"`
	RestoredAt  *time.Time `json:"restoredAt,omitempty"`
}

func (Facility) TableName() string { return "facilities" }

// DisplayName “图标 + 名称”的展示形式
func (f *Facility) DisplayName() string {
	icon := f.Icon
	if icon == "" {
		icon = "🏢"
	}
	return icon + " " + f.Name
}

// FacilityStats 由队列计数和设施配置算出的展示数据
type FacilityStats struct {
	CurrentCount int          `json:"currentCount"`
	Capacity     int          `json:"capacity"`
	OccupancyPct float64      `json:"occupancyPct"`
	WaitMinutes  int          `json:"waitMinutes"`
	Status       StatusBucket `json:"status"`
	LastUpdated  time.Time    `json:"lastUpdated"`
}

// StatusBucket 占用档位：<40% low，<70% moderate，其余 high
type StatusBucket struct {
	Level string `json:"level"`
	Emoji string `json:"emoji"`
	Text  string `json:"text"`
	Color string `json:"color"`
}

func BucketFor(count, capacity int) StatusBucket {
	var occupancy float64
	if capacity > 0 {
		occupancy = float64(count) / float64(capacity) * 100
	}
	switch {
	case occupancy < 40:
		return StatusBucket{Level: "low", Emoji: "🟢", Text: "Low", Color: "#28a745"}
	case occupancy < 70:
		return StatusBucket{Level: "moderate", Emoji: "🟡", Text: "Moderate", Color: "#ffc107"}
	default:
		return StatusBucket{Level: "high", Emoji: "🔴", Text: "High", Color: "#dc3545"}
	}
}
