// internal/command/command.go

// Package command parses and dispatches the chat commands users send to
// the relay.
package command

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "menubot/internal/common/errors"
	"menubot/internal/common/logger"
	"menubot/internal/common/observability"
	"menubot/internal/menu"
	"menubot/internal/subscription"
)

const welcomeText = `Hi! I relay the daily canteen menu.

/today - show today's menu
/tomorrow - show tomorrow's menu
/subscribe hh:mm - get the menu every workday at hh:mm
/unsubscribe - stop daily menus
/show_subscription - show your current subscription`

const (
	replyTimeout       = "The canteen is not answering right now, please try again later."
	replyInternalError = "Something went wrong, please try again later."
	replyNotAllowed    = "Not allowed."
	replyUnknown       = "Unknown command. Send /start for help."
)

// MenuProvider serves rendered menus and supports forced invalidation.
type MenuProvider interface {
	Menu(ctx context.Context, day menu.Day) (string, error)
	Invalidate()
}

// LastError is the most recent handler failure, kept for /debug.
type LastError struct {
	At      time.Time
	Command string
	Sender  string
	Detail  string
}

// Handlers dispatches chat commands. Errors never escape Dispatch; they
// become user-facing replies and are recorded for /debug.
type Handlers struct {
	menus   MenuProvider
	store   subscription.Store
	isAdmin func(sender string) bool
	obs     *observability.Metrics
	logger  logger.Logger
	now     func() time.Time

	errMu   sync.Mutex
	lastErr *LastError
}

// New creates the command dispatcher. obs may be nil.
func New(menus MenuProvider, store subscription.Store, isAdmin func(string) bool, obs *observability.Metrics, log logger.Logger) *Handlers {
	return &Handlers{
		menus:   menus,
		store:   store,
		isAdmin: isAdmin,
		obs:     obs,
		logger:  log,
		now:     time.Now,
	}
}

// Dispatch handles one command line from sender and returns the reply text.
func (h *Handlers) Dispatch(ctx context.Context, sender, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return replyUnknown
	}
	cmd := fields[0]
	args := fields[1:]

	start := h.now()
	reply, err := h.handle(ctx, sender, cmd, args)
	status := "success"

	if err != nil {
		status = "error"
		h.recordError(cmd, sender, err)
		reply = replyFor(err)

		// Admins see what actually went wrong.
		if detail := apperrors.DetailsOf(err); h.isAdmin(sender) && reply != detail {
			reply += "\n" + detail
		}
	}

	if h.obs != nil {
		h.obs.RecordCommand(ctx, cmd, status, time.Since(start).Seconds())
	}

	h.logger.Debug("command dispatched", map[string]interface{}{
		"command": cmd,
		"sender":  sender,
		"status":  status,
	})

	return reply
}

func (h *Handlers) handle(ctx context.Context, sender, cmd string, args []string) (string, error) {
	switch cmd {
	case "/start":
		return welcomeText, nil

	case "/today":
		return h.menus.Menu(ctx, menu.Today)

	case "/tomorrow":
		return h.menus.Menu(ctx, menu.Tomorrow)

	case "/subscribe":
		return h.subscribe(ctx, sender, args)

	case "/unsubscribe":
		removed, err := h.store.Unsubscribe(ctx, sender)
		if err != nil {
			return "", err
		}
		if !removed {
			return "You are not subscribed.", nil
		}
		return "Unsubscribed. You will no longer receive the daily menu.", nil

	case "/show_subscription":
		sub, ok, err := h.store.Get(ctx, sender)
		if err != nil {
			return "", err
		}
		if !ok {
			return "You are not subscribed.", nil
		}
		return fmt.Sprintf("You receive the menu every workday at %s.", sub.NotifyAt), nil

	case "/refresh_cache":
		if !h.isAdmin(sender) {
			return replyNotAllowed, nil
		}
		h.menus.Invalidate()
		return "Menu cache invalidated.", nil

	case "/debug":
		if !h.isAdmin(sender) {
			return replyNotAllowed, nil
		}
		return h.debugReply(ctx), nil

	default:
		return replyUnknown, nil
	}
}

func (h *Handlers) subscribe(ctx context.Context, sender string, args []string) (string, error) {
	if len(args) != 1 {
		return "", apperrors.NewValidationError("usage: /subscribe hh:mm")
	}

	at, err := subscription.ParseTimeOfDay(args[0])
	if err != nil {
		return "", err
	}

	if err := h.store.Subscribe(ctx, sender, at); err != nil {
		return "", err
	}

	return fmt.Sprintf("Subscribed. You will receive the menu every workday at %s.", at), nil
}

func (h *Handlers) debugReply(ctx context.Context) string {
	h.errMu.Lock()
	errPart := "No errors recorded."
	if h.lastErr != nil {
		errPart = fmt.Sprintf("Last error at %s\ncommand: %s\nsender: %s\n%s",
			h.lastErr.At.Format(time.RFC3339),
			h.lastErr.Command,
			h.lastErr.Sender,
			h.lastErr.Detail,
		)
	}
	h.errMu.Unlock()

	return errPart + "\n\n" + h.subscriptionDump(ctx)
}

func (h *Handlers) subscriptionDump(ctx context.Context) string {
	subs, err := h.store.All(ctx)
	if err != nil {
		return "Subscriptions unavailable: " + err.Error()
	}
	if len(subs) == 0 {
		return "Subscriptions: none"
	}

	recipients := make([]string, 0, len(subs))
	for r := range subs {
		recipients = append(recipients, r)
	}
	sort.Strings(recipients)

	var b strings.Builder
	fmt.Fprintf(&b, "Subscriptions (%d):", len(subs))
	for _, r := range recipients {
		sub := subs[r]
		fmt.Fprintf(&b, "\n%s at %s", r, sub.NotifyAt)
		if sub.LastNotified != nil {
			fmt.Fprintf(&b, " (last notified %s)", *sub.LastNotified)
		}
	}
	return b.String()
}

func (h *Handlers) recordError(cmd, sender string, err error) {
	h.errMu.Lock()
	h.lastErr = &LastError{
		At:      h.now(),
		Command: cmd,
		Sender:  sender,
		Detail:  apperrors.DetailsOf(err),
	}
	h.errMu.Unlock()

	h.logger.Error("command failed", map[string]interface{}{
		"command": cmd,
		"sender":  sender,
		"code":    string(apperrors.CodeOf(err)),
		"error":   err.Error(),
	})
}

// replyFor maps an error to what the user sees. Validation details are
// safe to echo; everything else stays generic.
func replyFor(err error) string {
	switch {
	case apperrors.IsValidation(err):
		return apperrors.DetailsOf(err)
	case apperrors.IsTimeout(err):
		return replyTimeout
	default:
		return replyInternalError
	}
}
