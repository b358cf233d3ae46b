package domain

import "time"

// Preference is a user's stored notification settings.
// Empty strings mean "not set".
type Preference struct {
	UserID           string // chat id serialized as text
	NotificationTime string // HH:MM, local to Timezone
	Timezone         string // IANA name
	UpdatedAt        time.Time
}

// PreferenceUpdate carries a partial change; nil fields are left untouched.
type PreferenceUpdate struct {
	NotificationTime *string
	Timezone         *string
}
