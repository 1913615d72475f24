package output

import (
	"io"
	"os"

	"github.com/patchforge/patchforge/internal/models"
)

// Formatter defines terminal output formatting
type Formatter interface {
	Format(result *models.Result, w io.Writer) error
}

// VerbosityLevel determines output detail
type VerbosityLevel int

const (
	VerbosityQuiet    VerbosityLevel = iota // one-line summary
	VerbosityStandard                       // patch table + warnings
	VerbosityJSON                           // machine-readable JSON
)

// NewFormatter creates the formatter for a verbosity level
func NewFormatter(level VerbosityLevel) Formatter {
	switch level {
	case VerbosityQuiet:
		return &QuietFormatter{}
	case VerbosityJSON:
		return &JSONFormatter{}
	default:
		return &StandardFormatter{}
	}
}

// GetDefaultVerbosity returns the appropriate default for the environment
func GetDefaultVerbosity() VerbosityLevel {
	if os.Getenv("PATCHFORGE_JSON") == "1" {
		return VerbosityJSON
	}
	return VerbosityStandard
}
