package errors

import "errors"

var (
	ErrBranchNotFound = errors.New("branch not found")

	ErrServiceNotFound = errors.New("service not found at branch")

	ErrStaffNotFound = errors.New("staff member not found or does not offer the service")
)
