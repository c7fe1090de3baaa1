package framecomp

import (
	"context"
	"log/slog"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// LevelTrace is below slog.LevelDebug and carries verbose validation output.
const LevelTrace = slog.Level(-8)

// DefaultMessageLimit is how many times one distinct validation message
// is forwarded to the log.
const DefaultMessageLimit = 5

// Severity of a validation message, ordered from least to most severe.
type Severity int

const (
	SeverityVerbose Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "verbose"
	}
}

// Level maps a severity to the log level it is forwarded at.
func (s Severity) Level() slog.Level {
	switch {
	case s >= SeverityError:
		return slog.LevelError
	case s >= SeverityWarning:
		return slog.LevelWarn
	case s >= SeverityInfo:
		return slog.LevelDebug
	default:
		return LevelTrace
	}
}

// SeverityFromFlags returns the highest severity set in flags.
func SeverityFromFlags(flags vk.DebugReportFlags) Severity {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		return SeverityError
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		return SeverityWarning
	case flags&vk.DebugReportFlags(vk.DebugReportInformationBit) != 0:
		return SeverityInfo
	default:
		return SeverityVerbose
	}
}

// MessageLimiter forwards each distinct validation message to the log at
// most limit times for the life of the process. It is safe for concurrent
// use; the driver may call back from any thread.
type MessageLimiter struct {
	log   *slog.Logger
	limit int

	mu     sync.Mutex
	counts map[string]int
}

// NewMessageLimiter returns a limiter logging to logger. A non-positive
// limit selects DefaultMessageLimit.
func NewMessageLimiter(logger *slog.Logger, limit int) *MessageLimiter {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	return &MessageLimiter{
		log:    logger,
		limit:  limit,
		counts: make(map[string]int),
	}
}

// Handle records one occurrence of msg and logs it unless the message has
// already been forwarded limit times. It reports whether msg was logged.
func (m *MessageLimiter) Handle(sev Severity, kind, msg string) bool {
	m.mu.Lock()
	n := m.counts[msg]
	if n >= m.limit {
		m.mu.Unlock()
		return false
	}
	m.counts[msg] = n + 1
	m.mu.Unlock()

	m.log.Log(context.Background(), sev.Level(), msg, "kind", kind, "severity", sev.String())
	return true
}

// Count returns how many times msg has been forwarded.
func (m *MessageLimiter) Count(msg string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[msg]
}

// Reset forgets every message.
func (m *MessageLimiter) Reset() {
	m.mu.Lock()
	m.counts = make(map[string]int)
	m.mu.Unlock()
}

// ReportCallback adapts the limiter to a debug report callback. The
// callback never asks the driver to abort the call that triggered it.
func (m *MessageLimiter) ReportCallback() vk.DebugReportCallbackFunc {
	return func(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
		object uint64, location uint64, messageCode int32, pLayerPrefix string,
		pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

		m.Handle(SeverityFromFlags(flags), pLayerPrefix, pMessage)
		return vk.Bool32(vk.False)
	}
}

// InstallDebugCallback registers the limiter with instance for every
// report severity.
func InstallDebugCallback(instance vk.Instance, limiter *MessageLimiter) (vk.DebugReportCallback, error) {
	var callback vk.DebugReportCallback
	ret := vk.CreateDebugReportCallback(instance, &vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit |
			vk.DebugReportPerformanceWarningBit | vk.DebugReportInformationBit | vk.DebugReportDebugBit),
		PfnCallback: limiter.ReportCallback(),
	}, nil, &callback)
	if err := NewError("vkCreateDebugReportCallbackEXT", ret); err != nil {
		return vk.NullDebugReportCallback, err
	}
	return callback, nil
}
