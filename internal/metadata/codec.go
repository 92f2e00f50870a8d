// Package metadata is the single place that guesses the shape of
// message metadata. Rows written over the app's lifetime carry it as
// jsonb, as a JSON-encoded string, sometimes with the details field
// string-encoded a second time, and the oldest messages carry no
// metadata at all, only a recognizable text layout. Everything past
// this package sees either a well-formed Metadata or nothing.
package metadata

import (
	"encoding/json"
	"strings"

	"github.com/majstri/messaging/internal/models"
)

// Parse normalizes raw metadata into a Metadata value. It never
// fails: malformed input of any shape yields nil rather than a
// partially populated structure. Nil input is the normal plain-text
// message case.
func Parse(raw any) *models.Metadata {
	switch v := raw.(type) {
	case nil:
		return nil
	case *models.Metadata:
		return validate(v)
	case models.Metadata:
		return validate(&v)
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return parseJSON(v)
	case json.RawMessage:
		// The store hands the column through as json.RawMessage, which
		// a []byte case does not match.
		if len(v) == 0 {
			return nil
		}
		return parseJSON(v)
	case string:
		if v == "" {
			return nil
		}
		return parseJSON([]byte(v))
	case map[string]any:
		return fromObject(v)
	default:
		return nil
	}
}

func parseJSON(data []byte) *models.Metadata {
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil
	}
	switch v := decoded.(type) {
	case map[string]any:
		return fromObject(v)
	case string:
		// Double-encoded: a JSON string whose value is itself JSON.
		var obj map[string]any
		if err := json.Unmarshal([]byte(v), &obj); err != nil {
			return nil
		}
		return fromObject(obj)
	default:
		return nil
	}
}

func fromObject(obj map[string]any) *models.Metadata {
	kind, ok := obj["kind"].(string)
	if !ok {
		return nil
	}
	m := &models.Metadata{Kind: models.MetadataKind(kind)}
	if status, ok := obj["status"].(string); ok {
		m.Status = status
	}
	m.Details = decodeDetails(obj["details"])
	return validate(m)
}

// decodeDetails attempts one level of re-decoding when details is
// itself string-encoded JSON. Decode failure here is tolerated and
// the raw string kept, since details may legitimately be free text.
func decodeDetails(details any) any {
	s, ok := details.(string)
	if !ok {
		return details
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return s
	}
	return obj
}

func validate(m *models.Metadata) *models.Metadata {
	switch m.Kind {
	case models.MetadataBookingRequest, models.MetadataBookingResponse, models.MetadataAdminAnnouncement:
		return m
	default:
		return nil
	}
}

// Legacy booking messages predate structured metadata: the app used
// to write a marker line followed by "Dátum: ..." and "Čas: ..."
// lines directly into the message body.
const (
	legacyRequestMarker  = "🔨 Žiadosť o rezerváciu"
	legacyAcceptedMarker = "✅ Rezervácia potvrdená"
	legacyRejectedMarker = "❌ Rezervácia zamietnutá"

	legacyDatePrefix = "Dátum:"
	legacyTimePrefix = "Čas:"
)

// InferFromLegacyText reconstructs metadata from a legacy plain-text
// booking message. Best effort: no recognizable marker yields nil,
// which is not an error.
func InferFromLegacyText(content string) *models.Metadata {
	var kind models.MetadataKind
	var status string
	switch {
	case strings.HasPrefix(content, legacyRequestMarker):
		kind, status = models.MetadataBookingRequest, "pending"
	case strings.HasPrefix(content, legacyAcceptedMarker):
		kind, status = models.MetadataBookingResponse, "accepted"
	case strings.HasPrefix(content, legacyRejectedMarker):
		kind, status = models.MetadataBookingResponse, "rejected"
	default:
		return nil
	}

	details := map[string]any{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, legacyDatePrefix); ok {
			details["date"] = strings.TrimSpace(v)
		} else if v, ok := strings.CutPrefix(line, legacyTimePrefix); ok {
			details["time"] = strings.TrimSpace(v)
		}
	}

	m := &models.Metadata{Kind: kind, Status: status}
	if len(details) > 0 {
		m.Details = details
	}
	return m
}
