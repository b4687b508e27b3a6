package domain

import "time"

// User 账号记录。ID 由邮箱派生（见 DeriveUserID），永不物理删除，
// 停用走 Active 标记。
type User struct {
	ID           string     `gorm:"primaryKey;size:64" json:"id"`
	Email        string     `gorm:"uniqueIndex;size:191;not null" json:"email"`
	Name         string     `gorm:"size:64;not null" json:"name"`
	PasswordHash string     `gorm:"size:100;not null" json:"-"`
	Role         Role       `gorm:"size:16;not null;default:student" json:"role"`
	Active       bool       `gorm:"not null;default:true" json:"active"`
	Points       int        `gorm:"not null;default:0" json:"points"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

func (User) TableName() string { return "users" }
