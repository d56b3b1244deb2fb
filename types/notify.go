package types

const (
	NotifyTypeContentUpdated = "content_updated"
	NotifyTypeDeviceStatus   = "device_status"
	NotifyTypePresetApplied  = "preset_applied"
)

// Notification represents a notification message structure
type Notification struct {
	Type    string         `json:"type,omitempty"`    // Notification type, e.g. "content_updated"
	Title   string         `json:"title,omitempty"`   // Notification title
	Message string         `json:"message,omitempty"` // Notification message/content
	Data    map[string]any `json:"data,omitempty"`    // Additional data fields
}
