package models

// Notification is the single-slot transient message surfaced after
// state-changing operations. A new post overwrites the current one and the
// slot self-clears after a short display window.
type Notification struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

const (
	NotifySuccess = "success"
	NotifyError   = "error"
	NotifyInfo    = "info"
)
