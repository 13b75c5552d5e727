package engine

import (
	"log/slog"
	"time"

	"github.com/KayitWorks/KayitFlow/internal/models"
	"github.com/KayitWorks/KayitFlow/internal/util"
	"github.com/KayitWorks/KayitFlow/internal/validate"
)

// Transition advances a session by one inbound event.
//
// sess is the stored session for the event's user, or nil when none exists.
// The returned outcome carries the new session state (or a deletion request),
// the decided reply, and any side effects for the Driver to execute. Transition
// never touches a store or a network; it is a pure function of its inputs.
//
// Global commands are evaluated before any stage-specific logic, in the fixed
// order of the command table.
func (f *Flow) Transition(sess *models.Session, ev models.InboundEvent, now time.Time) models.Outcome {
	sess = sess.Clone()

	var cmd command
	switch ev.Kind {
	case models.EventText:
		cmd = matchCommand(ev.Text)
	case models.EventButton:
		cmd = buttonCommand(ev.ButtonID)
	}

	switch cmd {
	case cmdCancel:
		slog.Debug("Transition cancel command", "user", ev.UserID)
		return models.Outcome{Delete: sess != nil, Reply: msgCancelled()}

	case cmdRestart:
		slog.Debug("Transition restart command", "user", ev.UserID, "had_session", sess != nil)
		fresh := models.NewSession(ev.UserID, f.Variant, f.First(), now)
		return models.Outcome{Session: fresh, Reply: msgWelcome()}

	case cmdHelp:
		if sess != nil {
			sess.Touch(now)
		}
		return models.Outcome{Session: sess, Reply: msgHelp()}

	case cmdStatus:
		return models.Outcome{
			Session: sess,
			Effects: []models.SideEffect{{Kind: models.EffectLookupStatus}},
		}

	case cmdBack:
		return f.goBack(sess, ev, now)

	case cmdSkip:
		return f.skip(sess, ev, now)
	}

	// No session and no command: nudge toward the menu, do not create state.
	if sess == nil {
		if ev.Kind == models.EventButton {
			return models.Outcome{Reply: msgUnknownButton()}
		}
		return models.Outcome{Reply: msgNudge(ev.Text)}
	}

	if sess.Stage == models.StageProcessing {
		return models.Outcome{Session: sess, Reply: msgInProgress()}
	}

	step, ok := f.stepAt(sess.Stage)
	if !ok {
		// Session carries a stage this deployment's flow does not know,
		// e.g. after a variant change. Reset rather than loop forever.
		slog.Warn("Transition unknown stage, resetting session", "user", ev.UserID, "stage", sess.Stage)
		fresh := models.NewSession(ev.UserID, f.Variant, f.First(), now)
		return models.Outcome{Session: fresh, Reply: msgWelcome()}
	}

	switch ev.Kind {
	case models.EventMedia:
		return f.handleMedia(sess, step, ev, now)
	case models.EventButton:
		return models.Outcome{Session: sess, Reply: msgUnknownButton()}
	default:
		return f.handleText(sess, step, ev, now)
	}
}

// handleText runs the validator for the current step and advances or retries.
func (f *Flow) handleText(sess *models.Session, step Step, ev models.InboundEvent, now time.Time) models.Outcome {
	if step.Photos > 0 {
		// A photo stage answered with text counts as an invalid input.
		return f.failAttempt(sess, step, nil, now)
	}

	cleaned, err := validate.Field(step.Field, ev.Text)
	if err != nil {
		slog.Debug("Transition validation failed", "user", ev.UserID, "field", step.Field, "error", err)
		return f.failAttempt(sess, step, err, now)
	}

	sess.SetAnswer(step.Field, cleaned)
	return f.advance(sess, now)
}

// handleMedia appends an attachment in photo stages and rejects it elsewhere.
func (f *Flow) handleMedia(sess *models.Session, step Step, ev models.InboundEvent, now time.Time) models.Outcome {
	if step.Photos == 0 {
		return models.Outcome{Session: sess, Reply: msgNotExpectingPhoto()}
	}
	if ev.Media != nil && len(sess.Media) < models.MaxMediaPerSession {
		sess.Media = append(sess.Media, *ev.Media)
	}
	if len(sess.Media) < f.photosNeededThrough(step) {
		sess.Touch(now)
		return models.Outcome{Session: sess, Reply: promptFor(step, sess)}
	}
	return f.advance(sess, now)
}

// failAttempt increments the attempt counter and either retries or terminates.
func (f *Flow) failAttempt(sess *models.Session, step Step, err error, now time.Time) models.Outcome {
	sess.Attempts++
	if sess.Attempts >= f.MaxAttempts {
		slog.Info("Transition attempts exceeded, terminating session", "user", sess.ID, "stage", sess.Stage)
		return models.Outcome{Delete: true, Reply: msgTooManyAttempts()}
	}
	sess.Touch(now)
	return models.Outcome{Session: sess, Reply: corrective(step, err, sess.Attempts, f.MaxAttempts)}
}

// advance moves the session to the next stage, emitting either the next prompt
// or the terminal side effects.
func (f *Flow) advance(sess *models.Session, now time.Time) models.Outcome {
	next := f.nextStage(sess.Stage)
	sess.Stage = next
	sess.Attempts = 0
	sess.Touch(now)

	switch next {
	case models.StageComplete:
		record := models.CompletionRecord{
			ID:          util.GenerateRandomID("reg_", 32),
			UserID:      sess.ID,
			Answers:     sess.Answers,
			CompletedAt: now,
		}
		return models.Outcome{
			Delete:  true,
			Reply:   msgSuccess(sess.Answers),
			Effects: []models.SideEffect{{Kind: models.EffectRecordCompletion, Completion: &record}},
		}
	case models.StageProcessing:
		req := models.GenerationRequest{
			UserID: sess.ID,
			Prompt: sess.Answer(models.FieldDream),
			Media:  sess.Media,
		}
		return models.Outcome{
			Session: sess,
			Reply:   msgProcessing(),
			Effects: []models.SideEffect{{Kind: models.EffectGenerateContent, Generation: &req}},
		}
	default:
		step, _ := f.stepAt(next)
		return models.Outcome{Session: sess, Reply: promptFor(step, sess)}
	}
}

// goBack reverts exactly one stage; multi-stage undo is deliberately unsupported.
func (f *Flow) goBack(sess *models.Session, ev models.InboundEvent, now time.Time) models.Outcome {
	if sess == nil {
		return models.Outcome{Reply: msgNudge(ev.Text)}
	}
	prev := f.prevStage(sess.Stage)
	if prev == "" {
		return models.Outcome{Session: sess, Reply: msgCannotGoBack()}
	}
	sess.Stage = prev
	sess.Attempts = 0
	sess.Touch(now)
	prevStep, _ := f.stepAt(prev)
	if prevStep.Photos > 0 && len(sess.Media) > 0 {
		// Re-open the photo slot so the user can send a replacement.
		sess.Media = sess.Media[:len(sess.Media)-1]
	}
	return models.Outcome{Session: sess, Reply: promptFor(prevStep, sess)}
}

// skip advances past an optional step without recording an answer.
func (f *Flow) skip(sess *models.Session, ev models.InboundEvent, now time.Time) models.Outcome {
	if sess == nil {
		return models.Outcome{Reply: msgNudge(ev.Text)}
	}
	step, ok := f.stepAt(sess.Stage)
	if !ok || !step.Optional {
		return models.Outcome{Session: sess, Reply: msgSkipNotAllowed()}
	}
	return f.advance(sess, now)
}

// photosNeededThrough returns how many attachments must be collected once the
// given photo step is satisfied.
func (f *Flow) photosNeededThrough(step Step) int {
	total := 0
	for _, s := range f.Steps {
		total += s.Photos
		if s.Stage == step.Stage {
			break
		}
	}
	return total
}
