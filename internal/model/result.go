package model

import (
	"time"

	"github.com/google/uuid"
)

// Stage names the pipeline step an act failed in
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageTranslate Stage = "translate"
	StageStructure Stage = "structure"
	StageSave      Stage = "save"
)

// RunType distinguishes the different pipeline entry points
type RunType string

const (
	RunInitialImport RunType = "initial_import"
	RunSingleImport  RunType = "single_import"
	RunUpdateCheck   RunType = "update_check"
)

// RunStatus is the lifecycle state of an import run
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
)

// ImportError records why a single act did not make it through the pipeline
type ImportError struct {
	SourceID  string    `json:"source_id"`
	Stage     Stage     `json:"step"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ImportResult is the outcome of one pipeline run. It is created when the run
// starts, only ever grows while the run is in progress, and is finalized once.
type ImportResult struct {
	RunID        uuid.UUID    `json:"run_id"`
	Jurisdiction Jurisdiction `json:"jurisdiction"`
	RunType      RunType      `json:"run_type"`
	Status       RunStatus    `json:"status"`

	ActsFound      int `json:"acts_found"`
	ActsNew        int `json:"acts_new"`
	ActsUpdated    int `json:"acts_updated"`
	ActsTranslated int `json:"acts_translated"`
	ActsStructured int `json:"acts_structured"`
	ActsSkipped    int `json:"acts_skipped"`

	TranslationChars int     `json:"translation_chars"`
	InputTokens      int     `json:"input_tokens"`
	OutputTokens     int     `json:"output_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`

	Errors   []ImportError `json:"errors"`
	Warnings []string      `json:"warnings"`

	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// NewImportResult opens a run record in the running state
func NewImportResult(j Jurisdiction, runType RunType) *ImportResult {
	return &ImportResult{
		RunID:        uuid.New(),
		Jurisdiction: j,
		RunType:      runType,
		Status:       RunRunning,
		Errors:       []ImportError{},
		Warnings:     []string{},
		StartedAt:    time.Now().UTC(),
	}
}

// AddError appends a per-act failure
func (r *ImportResult) AddError(sourceID string, stage Stage, msg string) {
	r.Errors = append(r.Errors, ImportError{
		SourceID:  sourceID,
		Stage:     stage,
		Message:   msg,
		Timestamp: time.Now().UTC(),
	})
}

// AddWarning appends a non-fatal note
func (r *ImportResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Finish sets the terminal status. A non-nil fatal error always yields
// RunFailed; otherwise the run is partial when any act failed.
func (r *ImportResult) Finish(fatal error) {
	switch {
	case fatal != nil:
		r.Status = RunFailed
		r.AddWarning("run aborted: " + fatal.Error())
	case len(r.Errors) > 0:
		r.Status = RunPartial
	default:
		r.Status = RunCompleted
	}
	r.FinishedAt = time.Now().UTC()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
}

// IsTerminal reports whether the run has been finalized
func (r *ImportResult) IsTerminal() bool {
	return r.Status != RunRunning
}
