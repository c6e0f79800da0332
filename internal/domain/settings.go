package domain

import "errors"

// AlertFrequency is how often a user wants to hear about activity.
type AlertFrequency string

const (
	FrequencyImmediately AlertFrequency = "immediately"
	FrequencyDaily       AlertFrequency = "daily"
	FrequencyWeekly      AlertFrequency = "weekly"
)

// AlertSettings are the per-user alert preferences stored alongside the user profile.
type AlertSettings struct {
	KpThreshold       float64        `json:"kpThreshold" firestore:"kpThreshold"`
	EmailAlerts       bool           `json:"emailAlerts" firestore:"emailAlerts"`
	PushNotifications bool           `json:"pushNotifications" firestore:"pushNotifications"`
	AlertFrequency    AlertFrequency `json:"alertFrequency" firestore:"alertFrequency"`
	Locations         []string       `json:"locations" firestore:"locations"`
}

// DefaultAlertSettings returns the settings new users start with.
func DefaultAlertSettings() AlertSettings {
	return AlertSettings{
		KpThreshold:    DefaultKpThreshold,
		AlertFrequency: FrequencyImmediately,
		Locations:      []string{},
	}
}

// ErrReadOnlySession is returned when an anonymous viewer tries to save settings.
var ErrReadOnlySession = errors.New("session cannot persist settings")

// SessionKind tags a Session.
type SessionKind int

const (
	SessionAnonymous SessionKind = iota
	SessionDemo
	SessionAuthenticated
)

func (k SessionKind) String() string {
	switch k {
	case SessionDemo:
		return "demo"
	case SessionAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Session identifies the viewer. Storage is routed on Kind, never on UserID.
type Session struct {
	kind   SessionKind
	userID string
}

// Authenticated returns a session for a signed-in user.
func Authenticated(userID string) Session {
	return Session{kind: SessionAuthenticated, userID: userID}
}

// Demo returns the shared demo session.
func Demo() Session { return Session{kind: SessionDemo} }

// Anonymous returns a session for a viewer who is not signed in.
func Anonymous() Session { return Session{kind: SessionAnonymous} }

// Kind returns the session tag.
func (s Session) Kind() SessionKind { return s.kind }

// UserID returns the user ID for authenticated sessions and "" otherwise.
func (s Session) UserID() string { return s.userID }

func (s Session) String() string {
	if s.kind == SessionAuthenticated {
		return "authenticated:" + s.userID
	}
	return s.kind.String()
}
