package ir

// Version constants for the report schema and tool.
const (
	// ReportVersion is the Run Report schema version.
	ReportVersion = "1"

	// ToolVersion is the autoverify release version.
	ToolVersion = "0.1.0"
)
