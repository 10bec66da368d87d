package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidationExhausted  = errors.New("sentence validation exhausted")
	ErrParse                = errors.New("structured output malformed")
	ErrLyricsParse          = errors.New("lyrics output malformed")
	ErrInsufficientContent  = errors.New("insufficient session content")
	ErrProviderFailure      = errors.New("provider failure")
	ErrRenderTimeout        = errors.New("render timed out")
	ErrSongGenerationFailed = errors.New("song generation failed")
	ErrSynthesis            = errors.New("speech synthesis failed")
	ErrUpload               = errors.New("upload failed")
	ErrCache                = errors.New("cache failure")
	ErrInvalidRequest       = errors.New("invalid request")
)

// ExhaustedError reports why every sentence attempt was rejected.
// ProviderFailures, ParseFailures and Rejections always sum to Attempts.
type ExhaustedError struct {
	Word             string
	Attempts         int
	ProviderFailures int
	ParseFailures    int
	Rejections       int
	Last             error
}

func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("%s: word %q after %d attempts (provider=%d parse=%d rejected=%d)",
		ErrValidationExhausted, e.Word, e.Attempts, e.ProviderFailures, e.ParseFailures, e.Rejections)
	if e.Last != nil {
		msg += ": last: " + e.Last.Error()
	}
	return msg
}

func (e *ExhaustedError) Is(target error) bool { return target == ErrValidationExhausted }

func (e *ExhaustedError) Unwrap() error { return e.Last }

// StageError marks the pipeline step that moved a run into the Failed state.
type StageError struct {
	Pipeline string
	Stage    string
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s pipeline failed at %s: %v", e.Pipeline, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// FailedStage returns the stage name carried by err, or "".
func FailedStage(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
