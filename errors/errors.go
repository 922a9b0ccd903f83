package errors

import "fmt"

var (
	ErrWorkerPanic    = fmt.Errorf("worker panic")
	ErrEmptyWords     = fmt.Errorf("no words have been found")
	ErrPayloadInvalid = fmt.Errorf("invalid event payload")
	ErrUnknownEvent   = fmt.Errorf("unknown event kind")
	ErrGroupNotFound  = fmt.Errorf("group not found")
)
