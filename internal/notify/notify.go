// Package notify resolves notification targets, fans out push payloads and
// prunes device tokens the push service reports as permanently invalid.
package notify

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"messbook/internal/metrics"
	"messbook/internal/models"
	"messbook/internal/storage"
)

// Payload is what the push delivery service accepts for every token.
type Payload struct {
	Title string
	Body  string
	Link  string
}

// Result is the per-token delivery outcome. Each token's result is
// independent of every other token's.
type Result struct {
	Token string
	// Code is empty on success, otherwise a failure code from the push
	// service. Only the two permanently-invalid codes trigger cleanup.
	Code string
}

// Failure codes denoting a permanently invalid registration. Anything else
// is treated as transient and leaves the token alone.
const (
	CodeUnregistered    = "UNREGISTERED"
	CodeInvalidArgument = "INVALID_ARGUMENT"
)

func permanentlyInvalid(code string) bool {
	return code == CodeUnregistered || code == CodeInvalidArgument
}

// Pusher is the push delivery collaborator.
type Pusher interface {
	// Send delivers the payload to every token and returns one Result per
	// token. A non-nil error means the whole batch failed to go out.
	Send(ctx context.Context, tokens []string, payload Payload) ([]Result, error)
}

// Fanout delivers notifications and manages the device-token lifecycle.
type Fanout struct {
	store  storage.Store
	pusher Pusher

	// dispatchTimeout bounds one background delivery.
	dispatchTimeout time.Duration
}

// New creates a fanout. pusher may be nil, in which case notifications are
// persisted to feeds but no pushes go out.
func New(store storage.Store, pusher Pusher) *Fanout {
	return &Fanout{store: store, pusher: pusher, dispatchTimeout: 30 * time.Second}
}

// Dispatch runs Deliver in the background and returns immediately. The
// triggering ledger mutation is already durable; delivery failures are
// logged, never propagated.
func (f *Fanout) Dispatch(messID, target, message, link string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), f.dispatchTimeout)
		defer cancel()
		if err := f.Deliver(ctx, messID, target, message, link); err != nil {
			slog.Error("notification delivery failed",
				"mess_id", messID, "target", target, "error", err)
		}
	}()
}

// Deliver resolves the target, persists one feed entry per recipient, sends
// the push payload to the union of their device tokens and prunes tokens
// reported permanently invalid.
//
// Target resolution: the literal "manager" resolves to every member holding
// the manager role (silently a no-op when there are none); anything else is
// a single user id.
func (f *Fanout) Deliver(ctx context.Context, messID, target, message, link string) error {
	userIDs, err := f.resolve(ctx, messID, target)
	if err != nil {
		return err
	}
	if len(userIDs) == 0 {
		return nil
	}

	mess, err := f.store.GetMess(ctx, messID)
	if err != nil {
		return err
	}

	for _, userID := range userIDs {
		n := &models.Notification{MessID: messID, UserID: userID, Message: message, Link: link}
		if err := f.store.CreateNotification(ctx, n); err != nil {
			slog.Error("failed to persist notification",
				"mess_id", messID, "user_id", userID, "error", err)
		}
	}

	tokens, err := f.store.ListDeviceTokens(ctx, userIDs)
	if err != nil {
		return err
	}
	if len(tokens) == 0 || f.pusher == nil {
		return nil
	}

	tokenStrings := make([]string, len(tokens))
	for i, t := range tokens {
		tokenStrings[i] = t.Token
	}

	results, err := f.pusher.Send(ctx, tokenStrings, Payload{
		Title: mess.Name,
		Body:  message,
		Link:  link,
	})
	if err != nil {
		return err
	}

	f.cleanup(ctx, results)
	return nil
}

// resolve maps a notification target to recipient user ids.
func (f *Fanout) resolve(ctx context.Context, messID, target string) ([]string, error) {
	if target != models.TargetManager {
		return []string{target}, nil
	}
	managers, err := f.store.ListMembersByRole(ctx, messID, models.RoleManager)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(managers))
	for i, m := range managers {
		ids[i] = m.ID
	}
	return ids, nil
}

// cleanup removes every token whose result denotes a permanently invalid
// registration. Removals run concurrently and independently: one failed
// prune is logged and does not stop the others.
func (f *Fanout) cleanup(ctx context.Context, results []Result) {
	var g errgroup.Group
	for _, res := range results {
		switch {
		case res.Code == "":
			metrics.PushesSent.WithLabelValues("ok").Inc()
		case permanentlyInvalid(res.Code):
			metrics.PushesSent.WithLabelValues("invalid").Inc()
			token := res.Token
			code := res.Code
			g.Go(func() error {
				if err := f.store.RemoveDeviceToken(ctx, token); err != nil {
					slog.Error("failed to prune device token", "code", code, "error", err)
					return nil
				}
				metrics.TokensPruned.Inc()
				slog.Info("pruned invalid device token", "code", code)
				return nil
			})
		default:
			// Transient failure: keep the token.
			metrics.PushesSent.WithLabelValues("transient_error").Inc()
		}
	}
	g.Wait()
}
