package domain

import "time"

// QueueState 每个设施一条：当前在场人数。Count 恒 >= 0，
// 超出容量不拦（容量只影响展示档位）。
type QueueState struct {
	FacilityID  string    `gorm:"primaryKey;size:64" json:"facilityId"`
	Count       int       `gorm:"not null;default:0" json:"count"`
	LastUpdated time.Time `gorm:"not null" json:"lastUpdated"`
}

func (QueueState) TableName() string { return "queue_states" }

// ActiveCheckin 当前在场记录。UserID 上的唯一索引保证一个用户
// 在任意时刻至多签入一个设施——这是跨设施竞态的数据库兜底。
type ActiveCheckin struct {
	FacilityID string    `gorm:"primaryKey;size:64" json:"facilityId"`
	UserID     string    `gorm:"primaryKey;size:64;uniqueIndex:uniq_active_user" json:"userId"`
	UserName   string    `gorm:"size:64" json:"userName"`
	CheckinAt  time.Time `gorm:"not null" json:"checkinAt"`
}

func (ActiveCheckin) TableName() string { return "active_checkins" }

// 历史动作类型
const (
	ActionCheckin  = "checkin"
	ActionCheckout = "checkout"
	ActionReset    = "reset"
)

// HistoryEntry 只追加的流水，reset 不清历史
type HistoryEntry struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	FacilityID string    `gorm:"size:64;index" json:"facilityId"`
	Action     string    `gorm:"size:16;not null" json:"action"`
	Count      int       `gorm:"not null" json:"count"` // 动作之后的计数
	Timestamp  time.Time `gorm:"index" json:"timestamp"`
	Hour       int       `json:"hour"`
	Day        string    `gorm:"size:16" json:"day"` // 星期几，如 "Monday"
	UserID     string    `gorm:"size:64" json:"userId,omitempty"`
	UserName   string    `gorm:"size:64" json:"userName,omitempty"`
	ActorID    string    `gorm:"size:64" json:"actorId,omitempty"` // reset 的操作者
}

func (HistoryEntry) TableName() string { return "history_entries" }
