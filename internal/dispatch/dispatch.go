// Package dispatch translates engine replies into transport sends.
//
// Transport failures are logged and swallowed here: a lost reply must never
// roll back a session transition or bubble up to the webhook response.
package dispatch

import (
	"context"
	"log/slog"

	"github.com/KayitWorks/KayitFlow/internal/messaging"
	"github.com/KayitWorks/KayitFlow/internal/models"
)

// Dispatcher sends engine replies through a messaging service.
type Dispatcher struct {
	svc messaging.Service
}

// NewDispatcher creates a Dispatcher over the given messaging service.
func NewDispatcher(svc messaging.Service) *Dispatcher {
	return &Dispatcher{svc: svc}
}

// Dispatch sends one reply to the user. Exactly one transport call is made per
// reply; errors are logged and dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, userID string, reply *models.Reply) {
	if reply == nil {
		return
	}

	var err error
	switch reply.Kind {
	case models.ReplyText:
		err = d.svc.SendText(ctx, userID, reply.Text)
	case models.ReplyButtons:
		err = d.svc.SendButtons(ctx, userID, reply.Text, reply.Buttons)
	case models.ReplyMedia:
		if reply.Media == nil {
			slog.Error("Dispatcher media reply without media reference", "user", userID)
			return
		}
		err = d.svc.SendMediaWithCaption(ctx, userID, *reply.Media, reply.Caption)
	default:
		slog.Error("Dispatcher unknown reply kind", "user", userID, "kind", reply.Kind)
		return
	}

	if err != nil {
		slog.Error("Dispatcher send failed", "error", err, "user", userID, "kind", reply.Kind)
		return
	}
	slog.Debug("Dispatcher reply sent", "user", userID, "kind", reply.Kind)
}
