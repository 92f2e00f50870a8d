package models

// MetadataKind tags the structured payload a message may carry.
type MetadataKind string

const (
	MetadataBookingRequest    MetadataKind = "booking_request"
	MetadataBookingResponse   MetadataKind = "booking_response"
	MetadataAdminAnnouncement MetadataKind = "admin_announcement"
)

// Metadata is the structured tag attached to a message that
// distinguishes it from plain text, e.g. a booking request with a
// date and time. Details is free-form: legitimately either a decoded
// object or a raw string, depending on what the sender stored.
type Metadata struct {
	Kind    MetadataKind `json:"kind"`
	Status  string       `json:"status,omitempty"`
	Details any          `json:"details,omitempty"`
}

// DetailField returns a string field from Details when Details is a
// decoded object; ok is false otherwise.
func (m *Metadata) DetailField(key string) (string, bool) {
	obj, ok := m.Details.(map[string]any)
	if !ok {
		return "", false
	}
	v, ok := obj[key].(string)
	return v, ok
}
