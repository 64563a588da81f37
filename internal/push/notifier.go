package push

import (
	"errors"
	"log/slog"

	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/store"
)

// Kind selects which notification toggle in UserSettings gates a push.
type Kind int

const (
	KindNudge Kind = iota
	KindHelpRequest
	KindCrisis
	KindMoodReminder
	KindActivity
)

func (k Kind) enabled(s model.UserSettings) bool {
	if !s.PushNotifications {
		return false
	}
	switch k {
	case KindNudge:
		return s.NudgeNotifications
	case KindCrisis:
		return s.CrisisAlerts
	case KindMoodReminder:
		return s.MoodReminders
	case KindHelpRequest, KindActivity:
		return s.FamilyActivity
	}
	return false
}

// Notifier delivers pushes to family members, honoring each user's settings
// and pruning subscriptions the push service has dropped.
type Notifier struct {
	service  *Service
	subs     *store.PushStore
	users    *store.UserStore
	settings *store.SettingsStore
	logger   *slog.Logger
}

// NewNotifier returns a Notifier. A nil service makes every call a no-op.
func NewNotifier(service *Service, subs *store.PushStore, users *store.UserStore, settings *store.SettingsStore, logger *slog.Logger) *Notifier {
	return &Notifier{
		service:  service,
		subs:     subs,
		users:    users,
		settings: settings,
		logger:   logger.With("component", "push"),
	}
}

func (n *Notifier) Enabled() bool {
	return n != nil && n.service != nil
}

// NotifyMember pushes to the user linked to memberID. It returns the number
// of devices reached.
func (n *Notifier) NotifyMember(memberID int64, kind Kind, payload Payload) int {
	if !n.Enabled() {
		return 0
	}
	u, err := n.users.GetByMemberID(memberID)
	if err != nil {
		n.logger.Error("lookup member user", "member_id", memberID, "error", err)
		return 0
	}
	if u == nil {
		return 0
	}
	return n.NotifyUser(u.ID, kind, payload)
}

// NotifyFamily pushes to every linked user except the one acting as
// excludeMemberID.
func (n *Notifier) NotifyFamily(excludeMemberID int64, kind Kind, payload Payload) int {
	return n.NotifyFamilyWhere(excludeMemberID, func(int64) bool { return true }, kind, payload)
}

// NotifyFamilyWhere is NotifyFamily limited to members that pass allow.
func (n *Notifier) NotifyFamilyWhere(excludeMemberID int64, allow func(memberID int64) bool, kind Kind, payload Payload) int {
	if !n.Enabled() {
		return 0
	}
	users, err := n.users.List()
	if err != nil {
		n.logger.Error("list users", "error", err)
		return 0
	}
	sent := 0
	for _, u := range users {
		if u.MemberID == nil || *u.MemberID == excludeMemberID || !allow(*u.MemberID) {
			continue
		}
		sent += n.NotifyUser(u.ID, kind, payload)
	}
	return sent
}

func (n *Notifier) NotifyUser(userID int64, kind Kind, payload Payload) int {
	if !n.Enabled() {
		return 0
	}
	settings, err := n.settings.Get(userID)
	if err != nil {
		n.logger.Error("load settings", "user_id", userID, "error", err)
		return 0
	}
	if !kind.enabled(settings) {
		return 0
	}

	subs, err := n.subs.ListByUser(userID)
	if err != nil {
		n.logger.Error("list subscriptions", "user_id", userID, "error", err)
		return 0
	}
	sent := 0
	for i := range subs {
		err := n.service.Send(&subs[i], payload)
		switch {
		case err == nil:
			sent++
		case errors.Is(err, ErrExpired):
			if derr := n.subs.DeleteByEndpoint(subs[i].Endpoint); derr != nil {
				n.logger.Error("delete expired subscription", "id", subs[i].ID, "error", derr)
			}
		default:
			n.logger.Warn("send push", "user_id", userID, "tag", payload.Tag, "error", err)
		}
	}
	return sent
}
