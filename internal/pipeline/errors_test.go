package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/oplego/lexharvest/internal/adapters"
	"github.com/oplego/lexharvest/internal/model"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want model.Stage
	}{
		{"typed fetch", FetchError("X", errBoom), model.StageFetch},
		{"typed translate", TranslateError("X", errBoom), model.StageTranslate},
		{"typed structure", StructureError("X", errBoom), model.StageStructure},
		{"typed save", SaveError("X", errBoom), model.StageSave},
		{"typed wins over message", SaveError("X", errors.New("http connection reset")), model.StageSave},
		{"wrapped typed", fmt.Errorf("outer: %w", TranslateError("X", errBoom)), model.StageTranslate},
		{"no text sentinel", adapters.ErrNoText, model.StageFetch},
		{"http status", errors.New("unexpected status: 404 Not Found"), model.StageFetch},
		{"deepl", errors.New("deepl API error (456): quota"), model.StageTranslate},
		{"translation", errors.New("Translation failed"), model.StageTranslate},
		{"llm", errors.New("llm timeout"), model.StageStructure},
		{"completion", errors.New("openai completion: EOF"), model.StageStructure},
		{"structuring", errors.New("structuring aborted"), model.StageStructure},
		{"default", errors.New("duplicate key value"), model.StageSave},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestStageError_Unwrap(t *testing.T) {
	err := FetchError("31989L0391", adapters.ErrNoText)

	if !errors.Is(err, adapters.ErrNoText) {
		t.Error("StageError should unwrap to its cause")
	}

	var se *StageError
	if !errors.As(err, &se) {
		t.Fatal("expected *StageError")
	}
	if se.SourceID != "31989L0391" || se.Stage != model.StageFetch {
		t.Errorf("unexpected StageError: %+v", se)
	}
	if got := err.Error(); got != "fetch 31989L0391: no text found" {
		t.Errorf("Error() = %q", got)
	}
	if got := errorMessage(err); got != "no text found" {
		t.Errorf("errorMessage = %q", got)
	}
}
