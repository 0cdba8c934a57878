package queue

import "errors"

// ErrInvalidTransition reports a status change that the lifecycle does not allow,
// such as completing a job twice or failing a job that is not processing.
var ErrInvalidTransition = errors.New("invalid job status transition")

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")
