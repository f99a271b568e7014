package coordinator

import (
	"errors"
	"fmt"
)

// RejectionError means the coordinator answered but refused the request
// (retcode != 0). Callers may ask the operator what to do.
type RejectionError struct {
	Path    string
	RetCode int
	Msg     string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("coordinator rejected %s (retcode %d): %s", e.Path, e.RetCode, e.Msg)
}

// ConnectivityError covers transport, HTTP status and decoding failures.
// Callers always fall back and continue.
type ConnectivityError struct {
	Path string
	Err  error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("coordinator %s unreachable: %v", e.Path, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

func IsRejection(err error) bool {
	var rejection *RejectionError
	return errors.As(err, &rejection)
}

func IsConnectivity(err error) bool {
	var connectivity *ConnectivityError
	return errors.As(err, &connectivity)
}
