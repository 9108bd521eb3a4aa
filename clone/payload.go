package clone

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// NotificationResponse is the payload xMatters posts when a recipient responds to a notification.
type NotificationResponse struct {
	EventIdentifier int64       `json:"eventIdentifier"`
	Response        string      `json:"response"`
	Recipient       string      `json:"recipient,omitempty"`
	Device          string      `json:"device,omitempty"`
	Annotation      string      `json:"annotation,omitempty"`
	Date            string      `json:"date,omitempty"`
	EventProperties *Properties `json:"eventProperties,omitempty"`
}

// Keyword returns the lowercased text before the first space of the response.
// A response that starts with a space has an empty keyword.
func (n NotificationResponse) Keyword() string {
	word, _, _ := strings.Cut(n.Response, " ")
	return strings.ToLower(word)
}

// FixPayload rewrites eventProperties from the array of single-key objects xMatters
// sends into a flat object, so properties can be read by name. Payloads whose
// eventProperties is not an array are returned unchanged.
func FixPayload(body []byte) ([]byte, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid json payload")
	}
	eventProperties := gjson.GetBytes(body, "eventProperties")
	if !eventProperties.IsArray() {
		return body, nil
	}
	fixed := "{}"
	var err error
	for _, eventProperty := range eventProperties.Array() {
		if !eventProperty.IsObject() {
			continue
		}
		eventProperty.ForEach(func(key, value gjson.Result) bool {
			fixed, err = sjson.SetRaw(fixed, escapePathComponent(key.String()), value.Raw)
			return false // only the first key of each element is used
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fix event property %w", err)
		}
	}
	return sjson.SetRawBytes(body, "eventProperties", []byte(fixed))
}

// ParseNotificationResponse fixes and decodes a notification response payload.
func ParseNotificationResponse(body []byte) (NotificationResponse, error) {
	var result NotificationResponse
	fixed, err := FixPayload(body)
	if err != nil {
		return result, err
	}
	err = json.Unmarshal(fixed, &result)
	if err != nil {
		return result, fmt.Errorf("failed to decode notification response %w", err)
	}
	return result, nil
}

// escapePathComponent escapes the characters gjson and sjson treat as path syntax.
func escapePathComponent(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '\\', '.', '*', '?', '|', '#', '@', ':', '!', '=', '<', '>', '%', '(', ')', '[', ']', '{', '}', ',', '"', '~':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
