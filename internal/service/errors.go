package service

import (
	"errors"
	"net/http"
	"strings"
)

// Классы ошибок, видимых пользователю. Конкретная ошибка оборачивает один из них:
//
//	fmt.Errorf("%w: booking is not pending", ErrBadRequest)
var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
)

// ErrUnresolvableEvent событие оплаты не удалось сопоставить с бронированием или оплатой
var ErrUnresolvableEvent = errors.New("unresolvable payment event")

// StatusCode возвращает HTTP-класс ошибки для слоя представления
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message возвращает сообщение для пользователя без класса ошибки
func Message(err error) string {
	if err == nil {
		return ""
	}
	if StatusCode(err) == http.StatusInternalServerError {
		return "internal error"
	}
	msg := err.Error()
	for _, class := range []error{ErrNotFound, ErrBadRequest, ErrForbidden, ErrConflict} {
		if rest, ok := strings.CutPrefix(msg, class.Error()+": "); ok {
			return rest
		}
	}
	return msg
}
