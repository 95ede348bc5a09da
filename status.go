package archidb

// Status is the four-valued lifecycle indicator of a Session.
// Once Ready or Error is reached the status never reverts to
// NotInitialized; a failed session retries through Initializing on the
// next query.
type Status int32

const (
	// StatusNotInitialized means no initialization attempt has started.
	StatusNotInitialized Status = iota
	// StatusInitializing means an initialization attempt is in flight.
	StatusInitializing
	// StatusReady means an engine handle is live and queries can run.
	StatusReady
	// StatusError means the last initialization attempt failed.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusNotInitialized:
		return "not_initialized"
	case StatusInitializing:
		return "initializing"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}
