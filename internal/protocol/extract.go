// Package protocol turns a raw model reply into a protocol result: it finds
// the sentinel-delimited payload, repairs near-JSON into strict JSON,
// validates it against the component schema and merges it with the prior
// component state.
//
// Everything here is pure and safe for concurrent use.
package protocol

import "strings"

// Sentinel markers the system prompt asks the model to wrap payloads in.
const (
	OpenMarker  = "---COMPONENT_UPDATE---"
	CloseMarker = "---END_COMPONENT_UPDATE---"
)

// Extraction is the payload block found in a reply.
type Extraction struct {
	// Payload is the trimmed text between the markers.
	Payload string
	// Explanation is the trimmed text before the opening marker.
	Explanation string
}

// Extract locates the first opening marker and the first closing marker after
// it. ok is false when either is missing, so a truncated reply degrades to
// conversation.
func Extract(reply string) (Extraction, bool) {
	open := strings.Index(reply, OpenMarker)
	if open < 0 {
		return Extraction{}, false
	}

	rest := reply[open+len(OpenMarker):]
	end := strings.Index(rest, CloseMarker)
	if end < 0 {
		return Extraction{}, false
	}

	return Extraction{
		Payload:     strings.TrimSpace(rest[:end]),
		Explanation: strings.TrimSpace(reply[:open]),
	}, true
}
