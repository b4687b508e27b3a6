package router

import (
	"errors"

	"qless-server/internal/service"
	httpez "qless-server/internal/transport/http/ez"
)

// svcErr 业务错误 → 响应码。签入/签出类冲突统一走 409。
func svcErr(err error) error {
	var elsewhere *service.AlreadyElsewhereError
	var checkedElsewhere *service.CheckedElsewhereError
	switch {
	case errors.Is(err, service.ErrNotFound):
		return httpez.NotFound(err.Error())
	case errors.Is(err, service.ErrDuplicateUser),
		errors.Is(err, service.ErrAlreadyExists):
		return httpez.Conflict(err.Error())
	case errors.Is(err, service.ErrDisabled),
		errors.Is(err, service.ErrInvalidPassword):
		return httpez.Unauthorized(err.Error())
	case errors.Is(err, service.ErrFacilityInactive),
		errors.Is(err, service.ErrAlreadyHere),
		errors.Is(err, service.ErrNotCheckedIn),
		errors.Is(err, service.ErrQueueEmpty),
		errors.As(err, &elsewhere),
		errors.As(err, &checkedElsewhere):
		return httpez.Conflict(err.Error())
	default:
		return httpez.Internal("internal error", err)
	}
}
