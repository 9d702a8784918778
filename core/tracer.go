package core

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// TraceLevel represents different levels of tracing
type TraceLevel int

const (
	TraceLevelOff TraceLevel = iota
	TraceLevelError
	TraceLevelWarn
	TraceLevelInfo
	TraceLevelDebug
	TraceLevelVerbose
)

var traceLevelNames = map[string]TraceLevel{
	"OFF":     TraceLevelOff,
	"ERROR":   TraceLevelError,
	"WARN":    TraceLevelWarn,
	"INFO":    TraceLevelInfo,
	"DEBUG":   TraceLevelDebug,
	"VERBOSE": TraceLevelVerbose,
}

// String returns the string representation of TraceLevel
func (tl TraceLevel) String() string {
	switch tl {
	case TraceLevelOff:
		return "OFF"
	case TraceLevelError:
		return "ERROR"
	case TraceLevelWarn:
		return "WARN"
	case TraceLevelInfo:
		return "INFO"
	case TraceLevelDebug:
		return "DEBUG"
	case TraceLevelVerbose:
		return "VERBOSE"
	default:
		return "UNKNOWN"
	}
}

// ParseTraceLevel parses a level name, case-insensitively.
func ParseTraceLevel(s string) (TraceLevel, bool) {
	level, ok := traceLevelNames[strings.ToUpper(strings.TrimSpace(s))]
	return level, ok
}

// slogLevel maps a trace level onto the slog scale. VERBOSE sits below DEBUG.
func (tl TraceLevel) slogLevel() slog.Level {
	switch tl {
	case TraceLevelError:
		return slog.LevelError
	case TraceLevelWarn:
		return slog.LevelWarn
	case TraceLevelInfo:
		return slog.LevelInfo
	case TraceLevelDebug:
		return slog.LevelDebug
	default:
		return slog.LevelDebug - 4
	}
}

// TraceComponent represents different components that can be traced
type TraceComponent string

const (
	TraceComponentSchema  TraceComponent = "SCHEMA"
	TraceComponentScan    TraceComponent = "SCAN"
	TraceComponentCSV     TraceComponent = "CSV"
	TraceComponentParquet TraceComponent = "PARQUET"
	TraceComponentCatalog TraceComponent = "CATALOG"
	TraceComponentConfig  TraceComponent = "CONFIG"
	TraceComponentCLI     TraceComponent = "CLI"
)

// AllTraceComponents lists every component, used when tracing is enabled
// with "ALL".
var AllTraceComponents = []TraceComponent{
	TraceComponentSchema,
	TraceComponentScan,
	TraceComponentCSV,
	TraceComponentParquet,
	TraceComponentCatalog,
	TraceComponentConfig,
	TraceComponentCLI,
}

// TraceEntry represents a single trace entry
type TraceEntry struct {
	Timestamp time.Time
	Level     TraceLevel
	Component TraceComponent
	Message   string
	Context   map[string]interface{}
}

// Tracer records scan activity. Entries are kept in a bounded ring and
// written through a slog text handler.
type Tracer struct {
	level             TraceLevel
	enabledComponents map[TraceComponent]bool
	mutex             sync.RWMutex
	entries           []TraceEntry
	maxEntries        int
	logger            *slog.Logger
}

var globalTracer *Tracer
var tracerOnce sync.Once

// GetTracer returns the global tracer instance
func GetTracer() *Tracer {
	tracerOnce.Do(func() {
		globalTracer = NewTracer()
	})
	return globalTracer
}

// NewTracer creates a tracer writing to stderr, configured from
// BYTESCAN_TRACE_LEVEL and BYTESCAN_TRACE_COMPONENTS.
func NewTracer() *Tracer {
	tracer := &Tracer{
		level:             TraceLevelOff,
		enabledComponents: make(map[TraceComponent]bool),
		maxEntries:        1000,
	}
	tracer.SetOutput(os.Stderr)
	tracer.Configure(os.Getenv("BYTESCAN_TRACE_LEVEL"), os.Getenv("BYTESCAN_TRACE_COMPONENTS"))
	return tracer
}

// Configure sets the level and the enabled components from their textual
// form. Empty or unknown values leave the current setting alone. Components
// are comma separated; "ALL" enables every component.
func (t *Tracer) Configure(level, components string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if lvl, ok := ParseTraceLevel(level); ok {
		t.level = lvl
	}

	components = strings.TrimSpace(components)
	if components == "" {
		return
	}
	if strings.EqualFold(components, "ALL") {
		for _, comp := range AllTraceComponents {
			t.enabledComponents[comp] = true
		}
		return
	}
	for _, comp := range strings.Split(components, ",") {
		if comp = strings.TrimSpace(comp); comp != "" {
			t.enabledComponents[TraceComponent(strings.ToUpper(comp))] = true
		}
	}
}

// SetOutput redirects trace output. A nil writer discards it.
func (t *Tracer) SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: TraceLevelVerbose.slogLevel(),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl < slog.LevelDebug {
					return slog.String(slog.LevelKey, TraceLevelVerbose.String())
				}
			}
			return a
		},
	})

	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.logger = slog.New(handler)
}

// SetLevel sets the trace level
func (t *Tracer) SetLevel(level TraceLevel) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.level = level
}

// EnableComponent enables tracing for a specific component
func (t *Tracer) EnableComponent(component TraceComponent) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.enabledComponents[component] = true
}

// DisableComponent disables tracing for a specific component
func (t *Tracer) DisableComponent(component TraceComponent) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	delete(t.enabledComponents, component)
}

// IsEnabled checks if tracing is enabled for a given level and component
func (t *Tracer) IsEnabled(level TraceLevel, component TraceComponent) bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return level != TraceLevelOff && t.level >= level && t.enabledComponents[component]
}

func (t *Tracer) trace(level TraceLevel, component TraceComponent, message string, fields []map[string]interface{}) {
	if !t.IsEnabled(level, component) {
		return
	}

	entry := TraceEntry{
		Timestamp: time.Now(),
		Level:     level,
		Component: component,
		Message:   message,
	}
	if len(fields) > 0 {
		entry.Context = fields[0]
	}

	t.mutex.Lock()
	t.entries = append(t.entries, entry)
	if len(t.entries) > t.maxEntries {
		t.entries = t.entries[len(t.entries)-t.maxEntries:]
	}
	logger := t.logger
	t.mutex.Unlock()

	logger.LogAttrs(context.Background(), level.slogLevel(), message, entryAttrs(entry)...)
}

// entryAttrs renders the component and the context map as slog attributes,
// keys sorted so output is stable.
func entryAttrs(entry TraceEntry) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(entry.Context)+1)
	attrs = append(attrs, slog.String("component", string(entry.Component)))

	keys := make([]string, 0, len(entry.Context))
	for k := range entry.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, entry.Context[k]))
	}
	return attrs
}

// Error logs an error-level trace
func (t *Tracer) Error(component TraceComponent, message string, context ...map[string]interface{}) {
	t.trace(TraceLevelError, component, message, context)
}

// Warn logs a warning-level trace
func (t *Tracer) Warn(component TraceComponent, message string, context ...map[string]interface{}) {
	t.trace(TraceLevelWarn, component, message, context)
}

// Info logs an info-level trace
func (t *Tracer) Info(component TraceComponent, message string, context ...map[string]interface{}) {
	t.trace(TraceLevelInfo, component, message, context)
}

// Debug logs a debug-level trace
func (t *Tracer) Debug(component TraceComponent, message string, context ...map[string]interface{}) {
	t.trace(TraceLevelDebug, component, message, context)
}

// Verbose logs a verbose-level trace
func (t *Tracer) Verbose(component TraceComponent, message string, context ...map[string]interface{}) {
	t.trace(TraceLevelVerbose, component, message, context)
}

// GetEntries returns a copy of the retained trace entries
func (t *Tracer) GetEntries() []TraceEntry {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	entries := make([]TraceEntry, len(t.entries))
	copy(entries, t.entries)
	return entries
}

// Clear clears all trace entries
func (t *Tracer) Clear() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.entries = nil
}

// GetStatus returns the current tracer status
func (t *Tracer) GetStatus() map[string]interface{} {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	components := make([]string, 0, len(t.enabledComponents))
	for comp, on := range t.enabledComponents {
		if on {
			components = append(components, string(comp))
		}
	}
	sort.Strings(components)

	return map[string]interface{}{
		"level":      t.level.String(),
		"components": components,
		"entries":    len(t.entries),
		"maxEntries": t.maxEntries,
	}
}

// TraceContext creates a context map for tracing
func TraceContext(pairs ...interface{}) map[string]interface{} {
	context := make(map[string]interface{})
	for i := 0; i < len(pairs)-1; i += 2 {
		if key, ok := pairs[i].(string); ok {
			context[key] = pairs[i+1]
		}
	}
	return context
}
