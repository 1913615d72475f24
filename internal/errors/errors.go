package errors

import (
	"fmt"
	"runtime"
	"strings"
)

// ErrorType represents the category of error
type ErrorType int

const (
	// MalformedDiff errors - the input diff cannot be parsed at all
	ErrorTypeMalformedDiff ErrorType = iota
	// ExtractionDegraded errors - symbol extraction fell back to heuristics
	ErrorTypeExtractionDegraded
	// AmbiguousResolution errors - a usage matched multiple definitions
	ErrorTypeAmbiguousResolution
	// OrderingViolation errors - a patch depends on a later patch
	ErrorTypeOrderingViolation
	// AtomicGroupSplit errors - an atomic group crosses patch boundaries
	ErrorTypeAtomicGroupSplit
	// EnrichmentUnavailable errors - LLM enrichment failed or is disabled
	ErrorTypeEnrichmentUnavailable
	// Config errors - missing or invalid configuration
	ErrorTypeConfig
	// FileSystem errors - file I/O failures
	ErrorTypeFileSystem
	// External errors - external service failures
	ErrorTypeExternal
	// Internal errors - unexpected internal state
	ErrorTypeInternal
)

// Severity represents how critical an error is
type Severity int

const (
	// SeverityLow - can continue with degraded functionality
	SeverityLow Severity = iota
	// SeverityMedium - should be addressed but not fatal
	SeverityMedium
	// SeverityHigh - significant issue, may impact functionality
	SeverityHigh
	// SeverityCritical - must be addressed, stops execution
	SeverityCritical
)

// Error represents a structured error with context
type Error struct {
	Type       ErrorType
	Severity   Severity
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Is checks if this error matches the target error type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsFatal returns true if this error should stop execution
func (e *Error) IsFatal() bool {
	return e.Severity == SeverityCritical
}

// DetailedString returns a detailed error message with context
func (e *Error) DetailedString() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] [%s] %s\n",
		severityString(e.Severity),
		typeString(e.Type),
		e.Message))

	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("Caused by: %v\n", e.Cause))
	}

	if len(e.Context) > 0 {
		sb.WriteString("Context:\n")
		for k, v := range e.Context {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", k, v))
		}
	}

	if e.StackTrace != "" {
		sb.WriteString(fmt.Sprintf("Stack trace:\n%s\n", e.StackTrace))
	}

	return sb.String()
}

func typeString(t ErrorType) string {
	switch t {
	case ErrorTypeMalformedDiff:
		return "MALFORMED_DIFF"
	case ErrorTypeExtractionDegraded:
		return "EXTRACTION_DEGRADED"
	case ErrorTypeAmbiguousResolution:
		return "AMBIGUOUS_RESOLUTION"
	case ErrorTypeOrderingViolation:
		return "ORDERING_VIOLATION"
	case ErrorTypeAtomicGroupSplit:
		return "ATOMIC_GROUP_SPLIT"
	case ErrorTypeEnrichmentUnavailable:
		return "ENRICHMENT_UNAVAILABLE"
	case ErrorTypeConfig:
		return "CONFIG"
	case ErrorTypeFileSystem:
		return "FILESYSTEM"
	case ErrorTypeExternal:
		return "EXTERNAL"
	case ErrorTypeInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

func severityString(s Severity) string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// captureStackTrace captures the current stack trace
func captureStackTrace(skip int) string {
	var sb strings.Builder
	for i := skip; i < skip+10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			break
		}
		sb.WriteString(fmt.Sprintf("  %s:%d %s\n", file, line, fn.Name()))
	}
	return sb.String()
}

// New creates a new error with the given type, severity, and message
func New(errType ErrorType, severity Severity, message string) *Error {
	return &Error{
		Type:       errType,
		Severity:   severity,
		Message:    message,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, severity Severity, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Type:       errType,
		Severity:   severity,
		Message:    message,
		Cause:      err,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(2),
	}
}

// Convenience constructors for the engine's error taxonomy

// MalformedDiffError signals unparseable diff input. Fatal: the run produces
// no partial output.
func MalformedDiffError(message string) *Error {
	return New(ErrorTypeMalformedDiff, SeverityCritical, message)
}

// MalformedDiffErrorf creates a malformed diff error with formatting
func MalformedDiffErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeMalformedDiff, SeverityCritical, fmt.Sprintf(format, args...))
}

// ExtractionDegraded signals that precise symbol extraction failed and the
// fallback heuristic was used. Recovered locally, recorded as a warning.
func ExtractionDegraded(err error, message string) *Error {
	return Wrap(err, ErrorTypeExtractionDegraded, SeverityLow, message)
}

// AmbiguousResolution signals a usage that matched several definitions.
// Recovered locally via split-strength edges.
func AmbiguousResolution(message string) *Error {
	return New(ErrorTypeAmbiguousResolution, SeverityLow, message)
}

// OrderingViolation signals a splitter bug: a patch depends on a patch with
// a higher id. Fatal, output would be unsafe to apply.
func OrderingViolation(message string) *Error {
	return New(ErrorTypeOrderingViolation, SeverityCritical, message)
}

// OrderingViolationf creates an ordering violation with formatting
func OrderingViolationf(format string, args ...interface{}) *Error {
	return New(ErrorTypeOrderingViolation, SeverityCritical, fmt.Sprintf(format, args...))
}

// AtomicGroupSplit signals a splitter bug: an atomic group landed in more
// than one patch. Fatal, output would be unsafe to apply.
func AtomicGroupSplit(message string) *Error {
	return New(ErrorTypeAtomicGroupSplit, SeverityCritical, message)
}

// AtomicGroupSplitf creates an atomic group split error with formatting
func AtomicGroupSplitf(format string, args ...interface{}) *Error {
	return New(ErrorTypeAtomicGroupSplit, SeverityCritical, fmt.Sprintf(format, args...))
}

// EnrichmentUnavailable signals that an LLM checkpoint was skipped.
// Informational; the structural result stands.
func EnrichmentUnavailable(err error, message string) *Error {
	return Wrap(err, ErrorTypeEnrichmentUnavailable, SeverityLow, message)
}

// ConfigError creates a configuration error
func ConfigError(message string) *Error {
	return New(ErrorTypeConfig, SeverityCritical, message)
}

// ConfigErrorf creates a configuration error with formatting
func ConfigErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeConfig, SeverityCritical, fmt.Sprintf(format, args...))
}

// FileSystemError wraps a filesystem error
func FileSystemError(err error, message string) *Error {
	return Wrap(err, ErrorTypeFileSystem, SeverityHigh, message)
}

// ExternalError wraps an external service error
func ExternalError(err error, message string) *Error {
	return Wrap(err, ErrorTypeExternal, SeverityMedium, message)
}

// InternalError creates an internal error
func InternalError(message string) *Error {
	return New(ErrorTypeInternal, SeverityCritical, message)
}

// InternalErrorf creates an internal error with formatting
func InternalErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeInternal, SeverityCritical, fmt.Sprintf(format, args...))
}

// IsFatal checks if an error is fatal (should stop execution)
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	if e, ok := err.(*Error); ok {
		return e.IsFatal()
	}

	return false
}

// GetType returns the type of an error
func GetType(err error) ErrorType {
	if err == nil {
		return ErrorTypeInternal
	}

	if e, ok := err.(*Error); ok {
		return e.Type
	}

	return ErrorTypeInternal
}
