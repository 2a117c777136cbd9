package domain

import "errors"

var (
	ErrNavigation      = errors.New("navigation failed")
	ErrPage            = errors.New("page unavailable")
	ErrElementNotFound = errors.New("element not found")
	ErrNotFound        = errors.New("not found")
)
