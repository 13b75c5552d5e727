// Package engine implements the conversation state machine for KayitFlow.
//
// A Flow is the ordered script of stages for one flow variant. The Transition
// method advances a session by one inbound event and returns the decided
// reply plus side-effect descriptors; executing those effects is the Driver's
// job, keeping Transition itself pure and unit-testable without network mocks.
package engine

import (
	"github.com/KayitWorks/KayitFlow/internal/models"
)

// Step is one question in a flow script. Field steps collect a validated text
// answer; photo steps (Photos > 0) collect attachments instead.
type Step struct {
	Stage    models.Stage
	Field    string
	Optional bool // the skip keyword advances past this step
	Photos   int  // number of attachments this step collects
}

// Flow is the complete script for one conversation variant.
type Flow struct {
	Variant     models.FlowVariant
	Steps       []Step
	MaxAttempts int
}

// NewFlow builds the script for a flow variant. maxAttempts <= 0 selects the default.
func NewFlow(variant models.FlowVariant, maxAttempts int) *Flow {
	if maxAttempts <= 0 {
		maxAttempts = models.DefaultMaxAttempts
	}
	steps := []Step{
		{Stage: models.StageAwaitingName, Field: models.FieldName},
		{Stage: models.StageAwaitingPhone, Field: models.FieldPhone},
		{Stage: models.StageAwaitingEmail, Field: models.FieldEmail},
		{Stage: models.StageAwaitingCity, Field: models.FieldCity},
	}
	if variant == models.FlowWizard {
		steps = append(steps,
			Step{Stage: models.StageAwaitingDream, Field: models.FieldDream, Optional: true},
			Step{Stage: models.StageAwaitingPhotoOne, Photos: 1},
			Step{Stage: models.StageAwaitingPhotoTwo, Photos: 1},
		)
	}
	return &Flow{Variant: variant, Steps: steps, MaxAttempts: maxAttempts}
}

// First returns the first stage of the flow.
func (f *Flow) First() models.Stage {
	return f.Steps[0].Stage
}

// stepIndex returns the position of stage in the script, or -1.
func (f *Flow) stepIndex(stage models.Stage) int {
	for i, s := range f.Steps {
		if s.Stage == stage {
			return i
		}
	}
	return -1
}

// stepAt returns the step for a stage.
func (f *Flow) stepAt(stage models.Stage) (Step, bool) {
	i := f.stepIndex(stage)
	if i < 0 {
		return Step{}, false
	}
	return f.Steps[i], true
}

// nextStage returns the stage after the given one. The stage after the last
// step is StageProcessing for flows ending in photos, StageComplete otherwise.
func (f *Flow) nextStage(stage models.Stage) models.Stage {
	i := f.stepIndex(stage)
	if i < 0 || i+1 >= len(f.Steps) {
		if f.endsInGeneration() {
			return models.StageProcessing
		}
		return models.StageComplete
	}
	return f.Steps[i+1].Stage
}

// prevStage returns the stage before the given one, or "" at the first step.
func (f *Flow) prevStage(stage models.Stage) models.Stage {
	i := f.stepIndex(stage)
	if i <= 0 {
		return ""
	}
	return f.Steps[i-1].Stage
}

// endsInGeneration reports whether the flow finishes with content generation
// rather than a plain completion record.
func (f *Flow) endsInGeneration() bool {
	return f.Steps[len(f.Steps)-1].Photos > 0
}
