package utils

import "errors"

var (
	ErrorRecordNotFound     = errors.New("record not found")
	ErrorStaleResponse      = errors.New("stale response discarded")
	ErrorSubmissionInFlight = errors.New("a submission for this record is already in flight")
)
