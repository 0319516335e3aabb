package ir

// Version constants for the stored sequence format and the tool.
const (
	// FormatVersion is the persisted sequence schema version.
	FormatVersion = "1"

	// ToolVersion is the aligniov version.
	ToolVersion = "0.1.0"
)
