package logger

import "strings"

// normalizeLevel maps slog level names onto the upper-case set used in output.
func normalizeLevel(level string) string {
	switch l := strings.ToUpper(strings.TrimSpace(level)); l {
	case "":
		return "INFO"
	case "WARNING":
		return "WARN"
	default:
		return l
	}
}

// normalizeStatus lower-cases status values so dashboards match one spelling.
func normalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"owner_id",
	"handler",
	"kind",
	"from_state",
	"to_state",
	"cb_key",
	"duration_ms",
	"messages",
	"kb",
	"date",
	"items",
	"entries",
	"count",
	"payload",
	"mode",
	"backend",
	"driver",
	"path",
	"err",
	"err_code",
	"attempts",
	"backoff_ms",
}
