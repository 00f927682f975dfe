package broker

import "errors"

var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrForbidden       = errors.New("not authorized to access this dashboard")
	ErrNotFound        = errors.New("broker not found")
)
