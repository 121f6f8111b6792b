// Package enginelog wraps a charmbracelet/log logger with the handful
// of call sites the controller's command-processing step needs. The
// audio thread never logs (§5); only the controller, which owns this
// type, ever calls it.
package enginelog

import (
	"os"

	"github.com/charmbracelet/log"
)

// Logger is a thin, pre-built-at-construction wrapper so no logger
// configuration happens per call site.
type Logger struct {
	l *log.Logger
}

// New builds a Logger writing to stderr with the engine's standard
// prefix, mirroring the teacher's direct use of the standard `log`
// package in cmd/gbemu/main.go but promoted to structured, leveled
// output.
func New() *Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "audioengine",
		ReportTimestamp: true,
	})
	return &Logger{l: l}
}

// EngineStarted logs successful engine construction.
func (lg *Logger) EngineStarted(sampleRate int, blockSize int) {
	lg.l.Info("engine started", "sample_rate", sampleRate, "block_size", blockSize)
}

// DeviceOpened logs a successful device open.
func (lg *Logger) DeviceOpened(name string) {
	lg.l.Info("device opened", "device", name)
}

// DeviceClosed logs a device close.
func (lg *Logger) DeviceClosed(name string) {
	lg.l.Info("device closed", "device", name)
}

// CommandRejected logs a structural command the backend refused,
// reported via a StatusMessage with Kind == StatusRejected.
func (lg *Logger) CommandRejected(id uint64, reason string) {
	lg.l.Warn("command rejected", "id", id, "reason", reason)
}

// TrackAdded logs a track node being wired into the master graph.
func (lg *Logger) TrackAdded(node int) {
	lg.l.Info("track added", "node", node)
}

// TrackRemoved logs a track node detached from the master graph.
func (lg *Logger) TrackRemoved(node int) {
	lg.l.Info("track removed", "node", node)
}
