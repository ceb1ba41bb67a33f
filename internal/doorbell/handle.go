package doorbell

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/gate-bell/internal/chat"
	"github.com/sweeney/gate-bell/internal/logic"
	"github.com/sweeney/gate-bell/internal/session"
)

// Replies to registry commands.
const (
	addedText        = "added your chat. it'll have to be verified by a moderator before you're clear!"
	alreadyAddedText = "I already added your chat"
	removedText      = "removed this chat! you'll no longer receive notifications from me"
	notFoundText     = "chat not found. are you sure you know what you're doing?"
	reloadedText     = "reloaded configuration files!"
	pingedText       = "did you get pinged?"
)

// Handle routes one inbound event. Events are independent: callers may run
// Handle concurrently. The only error returned wraps ErrActuator; everything
// else is logged and answered in chat.
func (s *Service) Handle(ctx context.Context, ev chat.Event) error {
	switch ev.Type {
	case chat.EventRing:
		s.Ring(ctx, ev.Text)
		return nil
	case chat.EventButton:
		return s.handleButton(ctx, ev)
	case chat.EventCommand:
		return s.handleCommand(ctx, ev)
	default:
		s.logger.Warn("unknown event type", "type", ev.Type)
		return nil
	}
}

func (s *Service) handleButton(ctx context.Context, ev chat.Event) error {
	if !s.authorize(ctx, ev.Origin) {
		return nil
	}
	s.logger.Info("received response", "from", ev.Origin.ID, "value", ev.Value)

	var err error
	switch ev.Value {
	case chat.ButtonOpen:
		_, err = s.Open(ctx, ev.Origin)
	default:
		s.logger.Info("request ignored", "from", ev.Origin.ID)
		s.sessions.Transition(ev.Origin.ID, session.Ignored)
		s.emit(logic.EventIgnored, s.now(), ev.Origin.ID, 0)
	}

	if ev.CallbackID != "" {
		if ackErr := s.transport.Acknowledge(ctx, ev.CallbackID); ackErr != nil {
			s.logger.Warn("callback acknowledge failed", "error", ackErr)
		}
	}
	// An open has usually resolved this alert already; the edit only
	// happens if it is still pending.
	if s.alerts.ResolveOne(ev.Message) {
		if editErr := s.transport.Edit(ctx, ev.Message, "Selected option: "+ev.Value); editErr != nil {
			s.logger.Warn("alert update failed", "chat", ev.Message.ChatID, "error", editErr)
		}
	}
	return err
}

func (s *Service) handleCommand(ctx context.Context, ev chat.Event) error {
	s.logger.Info("received command", "command", ev.Name, "from", ev.Origin.ID, "name", ev.Origin.Name)

	switch ev.Name {
	case "start", "addchat":
		s.addChat(ctx, ev.Origin)
	case "removechat":
		s.removeChat(ctx, ev.Origin)
	case "reload":
		if err := s.registry.Reload(); err != nil {
			s.logger.Warn("registry reload failed", "error", err)
			s.reply(ctx, ev.Origin.ID, "reload failed, keeping the previous configuration")
			return nil
		}
		s.reply(ctx, ev.Origin.ID, reloadedText)
	case "pingall":
		if !s.authorize(ctx, ev.Origin) {
			return nil
		}
		s.Ring(ctx, PingText)
		s.reply(ctx, ev.Origin.ID, pingedText)
	case "open_gate":
		if !s.authorize(ctx, ev.Origin) {
			return nil
		}
		_, err := s.Open(ctx, ev.Origin)
		return err
	case "status":
		if !s.authorize(ctx, ev.Origin) {
			return nil
		}
		s.reply(ctx, ev.Origin.ID, s.statusText())
	default:
		// Unknown commands from strangers are not worth an admin alert.
		if d, ok := s.registry.Lookup(ev.Origin.ID); !ok || !d.Enabled {
			return nil
		}
		s.reply(ctx, ev.Origin.ID, session.Hint(s.sessions.Last(ev.Origin.ID)))
	}
	return nil
}

// authorize reports whether origin is registered and enabled. Strangers get
// no reply; the admin chat is told instead.
func (s *Service) authorize(ctx context.Context, origin chat.Origin) bool {
	if d, ok := s.registry.Lookup(origin.ID); ok && d.Enabled {
		return true
	}

	msg := fmt.Sprintf("received unauthorized request from %s(%s)", origin.ID, origin.Name)
	s.logger.Warn(msg)
	s.emit(logic.EventUnauthorized, s.now(), origin.ID, 0)
	s.notifyAdmin(ctx, msg)
	return false
}

func (s *Service) notifyAdmin(ctx context.Context, text string) {
	if s.cfg.AdminChat == "" {
		return
	}
	if _, err := s.transport.Send(ctx, s.cfg.AdminChat, text, chat.SendOptions{}); err != nil {
		s.logger.Warn("admin notification failed", "error", err)
	}
}

// ReportError forwards a handler failure to the admin chat, split to fit
// message limits. Failures are only logged: the network is probably down.
func (s *Service) ReportError(ctx context.Context, ev chat.Event, cause error) {
	if s.cfg.AdminChat == "" {
		return
	}
	text := fmt.Sprintf("An error was raised while handling an update\nevent = %+v\nerror = %v", ev, cause)
	if err := chat.Report(ctx, s.transport, s.cfg.AdminChat, text); err != nil {
		s.logger.Warn("updating admin with error details failed, will not retry", "error", err)
	}
}

func (s *Service) addChat(ctx context.Context, origin chat.Origin) {
	added, err := s.registry.Add(origin.ID, origin.Name)
	if err != nil {
		// The in-memory registry already has the chat; only the file is stale.
		s.logger.Error("registry save failed", "chat", origin.ID, "error", err)
	}
	if !added {
		s.reply(ctx, origin.ID, alreadyAddedText)
		return
	}
	s.sessions.Transition(origin.ID, session.Registered)
	s.reply(ctx, origin.ID, addedText)
	s.notifyAdmin(ctx, fmt.Sprintf("new chat %s(%s) asked for notifications", origin.ID, origin.Name))
}

func (s *Service) removeChat(ctx context.Context, origin chat.Origin) {
	removed, err := s.registry.Remove(origin.ID)
	if err != nil {
		s.logger.Error("registry save failed", "chat", origin.ID, "error", err)
	}
	s.sessions.Forget(origin.ID)
	if removed {
		s.reply(ctx, origin.ID, removedText)
		return
	}
	s.reply(ctx, origin.ID, notFoundText)
}

func (s *Service) statusText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "gate: %s\n", s.GateState())
	fmt.Fprintf(&b, "pending alerts: %d\n", s.alerts.Len())
	if t, ok := s.guard.Last(logic.ClassRing); ok {
		fmt.Fprintf(&b, "last ring: %s\n", t.Format(time.DateTime))
	}
	if t, ok := s.guard.Last(logic.ClassOpen); ok {
		fmt.Fprintf(&b, "last open: %s\n", t.Format(time.DateTime))
	}
	return strings.TrimRight(b.String(), "\n")
}
