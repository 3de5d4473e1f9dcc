package apierr

import (
	"errors"
	"testing"

	"github.com/cesargomez89/navidrums/internal/constants"
)

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeInvalidArgument, constants.StatusBadRequest},
		{CodeNotFound, constants.StatusNotFound},
		{CodeConflict, constants.StatusConflict},
		{CodeBusy, constants.StatusTooManyRequests},
		{CodeUnsupportedFormat, constants.StatusUnsupportedMediaType},
		{CodeCorruptFile, constants.StatusUnprocessableEntity},
		{CodeTimeout, constants.StatusGatewayTimeout},
		{CodeIOError, constants.StatusInternalError},
		{CodeInternal, constants.StatusInternalError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "boom")
			if got := err.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := IOError("could not write cache entry", cause)

	if !errors.Is(err, cause) {
		t.Error("expected wrapped error to unwrap to cause")
	}
	if err.Code != CodeIOError {
		t.Errorf("expected code io_error, got %s", err.Code)
	}
}

func TestAs(t *testing.T) {
	err := NotFound("track %s not found", "/music/a.flac")
	var wrapped error = err

	got, ok := As(wrapped)
	if !ok {
		t.Fatal("expected As to find the *Error")
	}
	if got.Code != CodeNotFound {
		t.Errorf("expected code not_found, got %s", got.Code)
	}

	_, ok = As(errors.New("plain error"))
	if ok {
		t.Error("expected As to fail on a plain error")
	}
}
