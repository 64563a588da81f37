package model

// UserSettings holds the privacy, notification and data toggles for one user.
type UserSettings struct {
	Bio string `json:"bio"`

	// MoodVisibility maps a family member ID to whether this user shares
	// their mood with that member. Members not present default to visible.
	MoodVisibility       map[int64]bool `json:"mood_visibility"`
	JournalSharing       bool           `json:"journal_sharing"`
	TrustGraphVisibility bool           `json:"trust_graph_visibility"`

	NudgeNotifications bool `json:"nudge_notifications"`
	MoodReminders      bool `json:"mood_reminders"`
	FamilyActivity     bool `json:"family_activity"`
	CrisisAlerts       bool `json:"crisis_alerts"`
	EmailNotifications bool `json:"email_notifications"`
	PushNotifications  bool `json:"push_notifications"`

	DataSharing bool `json:"data_sharing"`
	Analytics   bool `json:"analytics"`
	AIInsights  bool `json:"ai_insights"`
}

// DefaultSettings returns the settings a new user starts with.
func DefaultSettings() UserSettings {
	return UserSettings{
		MoodVisibility:       map[int64]bool{},
		JournalSharing:       true,
		TrustGraphVisibility: true,
		NudgeNotifications:   true,
		MoodReminders:        true,
		FamilyActivity:       true,
		CrisisAlerts:         true,
		EmailNotifications:   false,
		PushNotifications:    true,
		DataSharing:          true,
		Analytics:            true,
		AIInsights:           true,
	}
}

// MoodVisibleTo reports whether the user's mood is shared with memberID.
func (s UserSettings) MoodVisibleTo(memberID int64) bool {
	visible, ok := s.MoodVisibility[memberID]
	return !ok || visible
}
