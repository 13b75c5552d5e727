package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KayitWorks/KayitFlow/internal/models"
	"github.com/KayitWorks/KayitFlow/internal/session"
)

// CompletionRecorder is the persistence collaborator contract.
// GetCompletion returns (nil, nil) when no record exists for the user.
type CompletionRecorder interface {
	RecordCompletion(ctx context.Context, rec models.CompletionRecord) error
	GetCompletion(ctx context.Context, userID string) (*models.CompletionRecord, error)
}

// ContentGenerator is the content-generation collaborator contract.
type ContentGenerator interface {
	Generate(ctx context.Context, req models.GenerationRequest) (models.MediaRef, error)
}

// Sender delivers engine-produced replies. dispatch.Dispatcher satisfies this;
// implementations must never propagate transport failures.
type Sender interface {
	Dispatch(ctx context.Context, userID string, reply *models.Reply)
}

// Driver executes one webhook delivery end to end: session lookup, transition,
// side effects, session write-back and outbound dispatch. Collaborator errors
// are converted here into user-facing outcomes; nothing escapes to the HTTP layer.
type Driver struct {
	flow      *Flow
	sessions  session.Store
	locks     *session.KeyedLock
	recorder  CompletionRecorder
	generator ContentGenerator
	out       Sender
}

// NewDriver wires a Driver. generator may be nil for flows without a photo stage.
func NewDriver(flow *Flow, sessions session.Store, recorder CompletionRecorder, generator ContentGenerator, out Sender) *Driver {
	return &Driver{
		flow:      flow,
		sessions:  sessions,
		locks:     session.NewKeyedLock(),
		recorder:  recorder,
		generator: generator,
		out:       out,
	}
}

// HandleEvent processes a single inbound event to completion. Transitions for
// the same user are serialized; deliveries for different users run independently.
func (d *Driver) HandleEvent(ctx context.Context, ev models.InboundEvent) error {
	if err := ev.Validate(); err != nil {
		slog.Error("Driver rejected malformed event", "error", err, "user", ev.UserID)
		return err
	}

	unlock := d.locks.Lock(ev.UserID)
	defer unlock()

	sess, err := d.sessions.Get(ctx, ev.UserID)
	if err != nil {
		slog.Error("Driver session lookup failed", "error", err, "user", ev.UserID)
		d.out.Dispatch(ctx, ev.UserID, msgTransientFailure())
		return fmt.Errorf("session lookup for %s: %w", ev.UserID, err)
	}

	outcome := d.flow.Transition(sess, ev, time.Now())
	reply := outcome.Reply

	var generation *models.GenerationRequest
	for _, eff := range outcome.Effects {
		switch eff.Kind {
		case models.EffectRecordCompletion:
			reply, outcome = d.recordCompletion(ctx, ev.UserID, *eff.Completion, reply, outcome)
		case models.EffectLookupStatus:
			reply = d.lookupStatus(ctx, ev.UserID)
		case models.EffectGenerateContent:
			// Runs after the session write and the processing notice below.
			generation = eff.Generation
		}
	}

	if err := d.applySessionOps(ctx, ev.UserID, outcome); err != nil {
		return err
	}

	if reply != nil {
		d.out.Dispatch(ctx, ev.UserID, reply)
	}

	if generation != nil {
		d.runGeneration(ctx, ev.UserID, *generation)
	}
	return nil
}

// recordCompletion persists the answers, guarding against duplicate registration.
// A persistence failure retains the session so the user can resubmit.
func (d *Driver) recordCompletion(ctx context.Context, userID string, rec models.CompletionRecord, reply *models.Reply, outcome models.Outcome) (*models.Reply, models.Outcome) {
	existing, err := d.recorder.GetCompletion(ctx, userID)
	if err != nil {
		slog.Error("Driver duplicate check failed", "error", err, "user", userID)
		// Keep the session at its current stage for a retry.
		return msgTransientFailure(), models.Outcome{}
	}
	if existing != nil {
		slog.Info("Driver rejected duplicate registration", "user", userID)
		return msgAlreadyRegistered(), models.Outcome{Delete: true}
	}
	if err := d.recorder.RecordCompletion(ctx, rec); err != nil {
		slog.Error("Driver completion write failed", "error", err, "user", userID)
		return msgTransientFailure(), models.Outcome{}
	}
	slog.Info("Driver recorded completion", "user", userID, "record_id", rec.ID)
	return reply, outcome
}

// lookupStatus builds the status report reply for the user.
func (d *Driver) lookupStatus(ctx context.Context, userID string) *models.Reply {
	rec, err := d.recorder.GetCompletion(ctx, userID)
	if err != nil {
		slog.Error("Driver status lookup failed", "error", err, "user", userID)
		return msgTransientFailure()
	}
	return msgStatus(rec)
}

// runGeneration calls the content-generation collaborator and delivers the
// result. Success and failure both end the session; there is no partial retry.
func (d *Driver) runGeneration(ctx context.Context, userID string, req models.GenerationRequest) {
	defer func() {
		if err := d.sessions.Delete(ctx, userID); err != nil {
			slog.Error("Driver session delete after generation failed", "error", err, "user", userID)
		}
	}()

	if d.generator == nil {
		slog.Error("Driver generation requested but no generator configured", "user", userID)
		d.out.Dispatch(ctx, userID, msgGenerationFailed())
		return
	}

	result, err := d.generator.Generate(ctx, req)
	if err != nil {
		slog.Error("Driver content generation failed", "error", err, "user", userID)
		d.out.Dispatch(ctx, userID, msgGenerationFailed())
		return
	}

	sess, _ := d.sessions.Get(ctx, userID)
	caption := "✨ İşte görseliniz! Umarız beğenirsiniz. 🎨"
	if sess != nil {
		caption = generationCaption(sess)
	}
	slog.Info("Driver content generation succeeded", "user", userID, "result_url_set", result.URL != "")
	d.out.Dispatch(ctx, userID, models.MediaReply(result, caption))
}

// applySessionOps writes the outcome's session state back to the store.
func (d *Driver) applySessionOps(ctx context.Context, userID string, outcome models.Outcome) error {
	if outcome.Delete {
		if err := d.sessions.Delete(ctx, userID); err != nil {
			slog.Error("Driver session delete failed", "error", err, "user", userID)
			return fmt.Errorf("session delete for %s: %w", userID, err)
		}
		return nil
	}
	if outcome.Session != nil {
		if err := d.sessions.Set(ctx, userID, outcome.Session); err != nil {
			slog.Error("Driver session write failed", "error", err, "user", userID)
			d.out.Dispatch(ctx, userID, msgTransientFailure())
			return fmt.Errorf("session write for %s: %w", userID, err)
		}
	}
	return nil
}
