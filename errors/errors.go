package errors

import "fmt"

var (
	ErrWorkerPanic     = fmt.Errorf("worker panic")
	ErrPuzzleNotFound  = fmt.Errorf("no such puzzle")
	ErrUserNotFound    = fmt.Errorf("no such user")
	ErrStoreTerminated = fmt.Errorf("cell store terminated")
)
