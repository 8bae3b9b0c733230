package projector

// Severity is the highlight level of a projected diagnostic.
type Severity uint8

const (
	// WeakWarning is used for every level that is not an error or a warning,
	// including style and info findings.
	WeakWarning Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "weak warning"
	}
}

// SeverityOf maps a linter level onto a Severity. Unknown and empty levels
// degrade to WeakWarning.
func SeverityOf(level string) Severity {
	switch level {
	case "error":
		return Error
	case "warning":
		return Warning
	default:
		return WeakWarning
	}
}
