package deploy

import "log/slog"

// EventKind classifies progress events.
type EventKind uint8

const (
	EventPhase EventKind = iota + 1
	EventBuildOutput
	EventInfo
	EventWarning
)

// Event is a progress notification emitted while a deployment runs.
type Event struct {
	Kind    EventKind
	Phase   Phase
	Message string
	Err     error
}

// ProgressFunc receives every event of a run in order.
type ProgressFunc func(Event)

// LogProgress returns a ProgressFunc that writes events to logger.
func LogProgress(logger *slog.Logger) ProgressFunc {
	return func(ev Event) {
		switch ev.Kind {
		case EventPhase:
			logger.Info("phase", "phase", ev.Phase.String())
		case EventBuildOutput:
			logger.Info("build", "line", ev.Message)
		case EventWarning:
			logger.Warn(ev.Message, "phase", ev.Phase.String(), "error", ev.Err)
		default:
			logger.Info(ev.Message, "phase", ev.Phase.String())
		}
	}
}
