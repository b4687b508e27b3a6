package service

import (
	"errors"
	"fmt"
)

// 可恢复的业务错误；transport 层统一映射成响应码
var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicateUser    = errors.New("user already exists")
	ErrAlreadyExists    = errors.New("facility with this name already exists")
	ErrDisabled         = errors.New("account is disabled")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrFacilityInactive = errors.New("facility is not active")
	ErrAlreadyHere      = errors.New("already checked in to this facility")
	ErrNotCheckedIn     = errors.New("not checked in to any facility")
	ErrQueueEmpty       = errors.New("queue is already empty")
)

// AlreadyElsewhereError 签入被拒：用户已在别的设施在场
type AlreadyElsewhereError struct {
	Facility string // 展示名
}

func (e *AlreadyElsewhereError) Error() string {
	return fmt.Sprintf("already checked in to %s, please check out first", e.Facility)
}

// CheckedElsewhereError 签出被拒：用户在场的是别的设施
type CheckedElsewhereError struct {
	Facility string
}

func (e *CheckedElsewhereError) Error() string {
	return fmt.Sprintf("checked in to %s, not this facility", e.Facility)
}
