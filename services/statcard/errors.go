package statcard

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step a request failed in.
type Stage string

const (
	StageRequest    Stage = "request"
	StageCacheRead  Stage = "cache_read"
	StageFetch      Stage = "fetch"
	StageExtract    Stage = "extract"
	StageCacheWrite Stage = "cache_write"
	StageCompose    Stage = "compose"
)

// FailureKind is the failure taxonomy the command layer translates
// into user-facing replies. It distinguishes "player not found" from
// "temporary, try again" from "feature broken until an operator looks
// at it".
type FailureKind string

const (
	KindInvalidHandle     FailureKind = "invalid_handle"
	KindFetchTimeout      FailureKind = "fetch_timeout"
	KindHandleNotFound    FailureKind = "handle_not_found"
	KindReadinessTimeout  FailureKind = "readiness_timeout"
	KindLayoutChanged     FailureKind = "layout_changed"
	KindMissingCoreFields FailureKind = "missing_core_fields"
	KindTemplateMissing   FailureKind = "template_missing"
	KindInternal          FailureKind = "internal"
)

// PipelineError is the single outward failure shape: the stage that
// died, the taxonomy kind, and the underlying cause.
type PipelineError struct {
	Stage Stage
	Kind  FailureKind
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("statcard pipeline failed at %s (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func failure(stage Stage, kind FailureKind, err error) *PipelineError {
	return &PipelineError{Stage: stage, Kind: kind, Err: err}
}

// KindOf extracts the failure kind from any error coming out of the
// service, defaulting to internal for foreign errors.
func KindOf(err error) FailureKind {
	if err == nil {
		return ""
	}
	var perr *PipelineError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindInternal
}
