package errors

import "errors"

var ErrContention = errors.New("otp challenge updated concurrently too many times")
