package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oplego/lexharvest/internal/model"
)

// StageError ties a per-act failure to the pipeline step it happened in
type StageError struct {
	Stage    model.Stage
	SourceID string
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.SourceID, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FetchError wraps a failure to retrieve or parse an act
func FetchError(sourceID string, err error) error {
	return &StageError{Stage: model.StageFetch, SourceID: sourceID, Err: err}
}

// TranslateError wraps a translation API failure
func TranslateError(sourceID string, err error) error {
	return &StageError{Stage: model.StageTranslate, SourceID: sourceID, Err: err}
}

// StructureError wraps a completion API failure
func StructureError(sourceID string, err error) error {
	return &StageError{Stage: model.StageStructure, SourceID: sourceID, Err: err}
}

// SaveError wraps a persistence failure
func SaveError(sourceID string, err error) error {
	return &StageError{Stage: model.StageSave, SourceID: sourceID, Err: err}
}

// ClassifyError returns the stage an error belongs to. Typed stage errors
// win; anything else is classified from its message, defaulting to save.
func ClassifyError(err error) model.Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	if err == nil {
		return model.StageSave
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "fetch", "http", "no text found", "unexpected status"):
		return model.StageFetch
	case containsAny(msg, "translat", "deepl"):
		return model.StageTranslate
	case containsAny(msg, "structur", "llm", "completion"):
		return model.StageStructure
	default:
		return model.StageSave
	}
}

// errorMessage is the text recorded in the run log
func errorMessage(err error) string {
	var se *StageError
	if errors.As(err, &se) && se.Err != nil {
		return se.Err.Error()
	}
	return err.Error()
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
