package core

import (
	"time"
)

// SessionID identifies a portal session. It is derived from the
// client-supplied D-Bus object path and treated as an opaque key:
// two ids are equal iff the underlying paths are equal.
type SessionID string

// NewSessionID wraps a session object path.
func NewSessionID(path string) SessionID {
	return SessionID(path)
}

func (id SessionID) String() string {
	return string(id)
}

// SessionState is the lifecycle state of a session. Transitions are
// enforced by the portal verbs; see CanSelectDevices and friends.
type SessionState int

const (
	StateCreated SessionState = iota
	StateDevicesSelected
	StateSourcesSelected
	StateDevicesAndSourcesSelected
	StateStarted
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateDevicesSelected:
		return "devices-selected"
	case StateSourcesSelected:
		return "sources-selected"
	case StateDevicesAndSourcesSelected:
		return "devices-and-sources-selected"
	case StateStarted:
		return "started"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CanSelectDevices reports whether SelectDevices is permitted. Device
// and source selection may happen in either order, but the granted
// device set is final once selected.
func (s SessionState) CanSelectDevices() bool {
	return s == StateCreated || s == StateSourcesSelected
}

// CanSelectSources reports whether SelectSources is permitted.
// Re-negotiation is allowed before start only.
func (s SessionState) CanSelectSources() bool {
	switch s {
	case StateCreated, StateDevicesSelected, StateSourcesSelected:
		return true
	default:
		return false
	}
}

// CanStart reports whether Start is permitted.
func (s SessionState) CanStart() bool {
	switch s {
	case StateDevicesSelected, StateSourcesSelected, StateDevicesAndSourcesSelected:
		return true
	default:
		return false
	}
}

// Session is the per-client portal session entity. All mutation happens
// under the session manager's per-session lock.
type Session struct {
	ID    SessionID
	AppID string
	State SessionState

	DevicesRequested DeviceType
	DevicesGranted   DeviceType
	SourcesRequested SourceType
	SourcesGranted   SourceType

	CursorMode   CursorMode
	PersistMode  PersistMode
	RestoreToken string

	// CaptureStream is set while the session is started with sources
	// granted; it is the backend-owned handle, never inspected here.
	CaptureStream *CaptureStream

	CreatedAt    time.Time
	LastActivity time.Time
}

// Touch refreshes the activity stamp.
func (s *Session) Touch() {
	s.LastActivity = time.Now()
}

// CaptureStream is an opaque reference to an active screen share owned
// by the backend. NodeID carries the compositor's stream identifier;
// EISFd, when non-negative, is an input-event-socket descriptor shared
// with the client.
type CaptureStream struct {
	Handle    string
	SessionID SessionID
	NodeID    uint32
	EISFd     int
}

// LifecycleEvent is broadcast by the session manager on state changes.
type LifecycleEvent struct {
	Kind LifecycleKind
	// Input carries the event name for LifecycleInputDispatched.
	Input string
}

// LifecycleKind tags a lifecycle event.
type LifecycleKind int

const (
	LifecycleCreated LifecycleKind = iota
	LifecycleDevicesSelected
	LifecycleSourcesSelected
	LifecycleStarted
	LifecycleClosed
	LifecycleInputDispatched
)

func (k LifecycleKind) String() string {
	switch k {
	case LifecycleCreated:
		return "created"
	case LifecycleDevicesSelected:
		return "devices-selected"
	case LifecycleSourcesSelected:
		return "sources-selected"
	case LifecycleStarted:
		return "started"
	case LifecycleClosed:
		return "closed"
	case LifecycleInputDispatched:
		return "input-dispatched"
	default:
		return "unknown"
	}
}
