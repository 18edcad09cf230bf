package integrity

import "candidate-interview/internal/models"

// NavigationType is how the current mount was reached.
type NavigationType string

const (
	NavigationNavigate    NavigationType = "navigate"
	NavigationReload      NavigationType = "reload"
	NavigationBackForward NavigationType = "back_forward"
)

// FullscreenMethod is one way of entering fullscreen. Hosts list the
// standard method first and vendor-prefixed fallbacks after it.
type FullscreenMethod struct {
	Name    string
	Request func() error
}

// Environment is the host the candidate session runs in. Every On*
// registration returns the function that removes it.
type Environment interface {
	NavigationType() NavigationType
	OnVisibilityChange(func(hidden bool)) (unregister func())
	// OnBeforeUnload handlers return true to ask the candidate to confirm.
	OnBeforeUnload(func() bool) (unregister func())
	OnFullscreenChange(func(active bool)) (unregister func())
	FullscreenMethods() []FullscreenMethod
	Navigate(url string)
}

// Notifier shows messages to the candidate.
type Notifier interface {
	Warn(message string)
	Terminal(message string)
}

// Hooks connect one mount to the session that owns it. Any hook may be nil.
type Hooks struct {
	// Session reports who the events belong to.
	Session func() (sessionID string, jobID int64, stage models.Stage)
	// OnEvent receives every recorded event.
	OnEvent func(event models.IntegrityEvent)
	// OnTerminate runs once when the session is revoked.
	OnTerminate func(reason string)
}
