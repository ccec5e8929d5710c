package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Notifier разбирает очередь переходов и рассылает push-уведомления друзьям.
// Отдельная задача: логика детектора не зависит от успеха доставки (§ fire
// and forget). Ошибки отправки логируются и не ретраятся.
type Notifier struct {
	events <-chan Transition
	users  UserDirectory
	push   PushSender
}

func NewNotifier(events <-chan Transition, users UserDirectory, push PushSender) *Notifier {
	return &Notifier{events: events, users: users, push: push}
}

func (n *Notifier) Run(ctx context.Context) {
	slog.Info("notifier: started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("notifier: stopped")
			return
		case tr, ok := <-n.events:
			if !ok {
				return
			}
			n.fanOut(ctx, tr)
		}
	}
}

func (n *Notifier) fanOut(ctx context.Context, tr Transition) {
	profile, err := n.users.GetProfile(ctx, tr.UserID)
	if err != nil {
		slog.Warn("notifier: get profile failed", "user", tr.UserID, "err", err)
		return
	}
	friends, err := n.users.ListFriends(ctx, tr.UserID)
	if err != nil {
		slog.Warn("notifier: list friends failed", "user", tr.UserID, "err", err)
		return
	}

	verb := "entered"
	if tr.Kind == TransitionExited {
		verb = "exited"
	}
	title := "Friend activity"
	body := fmt.Sprintf("%s %s %s", profile.DisplayName, verb, tr.AreaName)
	data := map[string]string{
		"friendId":  tr.UserID,
		"event":     string(tr.Kind),
		"areaId":    tr.AreaID,
		"timestamp": tr.At.UTC().Format(time.RFC3339),
	}

	for _, f := range friends {
		if f.DeviceToken == nil || *f.DeviceToken == "" {
			continue
		}
		if err := n.push.SendPush(ctx, *f.DeviceToken, title, body, data); err != nil {
			slog.Warn("notifier: push failed", "friend", f.ID, "err", err)
		}
	}
}

// LogPushSender — заглушка транспорта: доставка пушей живёт во внешнем
// сервисе, здесь событие только логируется.
type LogPushSender struct{}

func (LogPushSender) SendPush(_ context.Context, token, title, body string, _ map[string]string) error {
	slog.Debug("push", "token_prefix", shorten(token), "title", title, "body", body)
	return nil
}

func shorten(s string) string {
	if len(s) <= 8 {
		return s
	}
	return s[:8]
}
