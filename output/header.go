package output

import (
	"fmt"
	"time"
)

// BuildHeader constructs a transcript line header: [INSTANCE][DEVICE][TX|RX][YYYY-MM-DD HH:MM:SS.mmm]
func BuildHeader(instanceID, device, direction string, timestamp time.Time) string {
	// Format: [store-0412][COM5][TX][2025-12-03 15:04:05.123]
	return fmt.Sprintf("[%s][%s][%s][%s] ",
		instanceID,
		device,
		direction,
		FormatTimestamp(timestamp))
}

// FormatTimestamp formats a timestamp in the required format with milliseconds
func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05.000")
}
