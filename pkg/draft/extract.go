package draft

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Draft is the title and description of a pull request that has not been submitted yet
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// MalformedResponseError reports a reply from which no draft could be extracted
type MalformedResponseError struct {
	Reason string
	Reply  string
}

func (e *MalformedResponseError) Error() string {
	return "malformed model reply: " + e.Reason
}

// Extract pulls a Draft out of a raw model reply.
//
// The reply may surround the object with prose or code fences. The span from
// the first '{' to the last '}' is parsed strictly; nothing is repaired.
func Extract(reply string) (Draft, error) {
	object, err := locateObject(reply)
	if err != nil {
		return Draft{}, err
	}
	return parseDraft(object, reply)
}

// locateObject returns the substring from the first '{' to the last '}'
func locateObject(reply string) (string, error) {
	if strings.TrimSpace(reply) == "" {
		return "", &MalformedResponseError{Reason: "empty reply", Reply: reply}
	}

	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end < start {
		return "", &MalformedResponseError{Reason: "no JSON object found", Reply: reply}
	}
	return reply[start : end+1], nil
}

// parseDraft decodes the located object. title must be a string; description
// may be absent but, when present, must be a string too.
func parseDraft(object, reply string) (Draft, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(object), &fields); err != nil {
		return Draft{}, &MalformedResponseError{Reason: fmt.Sprintf("invalid JSON: %v", err), Reply: reply}
	}

	rawTitle, ok := fields["title"]
	if !ok {
		return Draft{}, &MalformedResponseError{Reason: `missing "title"`, Reply: reply}
	}
	title, ok := decodeString(rawTitle)
	if !ok {
		return Draft{}, &MalformedResponseError{Reason: `"title" is not a string`, Reply: reply}
	}

	var description string
	if rawDescription, present := fields["description"]; present {
		description, ok = decodeString(rawDescription)
		if !ok {
			return Draft{}, &MalformedResponseError{Reason: `"description" is not a string`, Reply: reply}
		}
	}

	return Draft{Title: title, Description: description}, nil
}

// decodeString accepts only a JSON string literal; null is rejected
func decodeString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
