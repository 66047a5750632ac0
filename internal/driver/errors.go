package driver

import (
	"errors"
	"fmt"

	"geo-compare/internal/report"
)

var (
	ErrInputMissing         = errors.New("input missing")
	ErrGeometryTypeMismatch = errors.New("geometry type mismatch")
	ErrIDFieldMissing       = errors.New("id field missing")
	ErrCanceled             = errors.New("canceled")
)

// InputError：结构校验失败，携带出错的输入侧
type InputError struct {
	Side   report.Side
	Err    error
	Detail string
}

func (e *InputError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s input: %v", e.Side, e.Err)
	}
	return fmt.Sprintf("%s input: %v: %s", e.Side, e.Err, e.Detail)
}

func (e *InputError) Unwrap() error { return e.Err }
