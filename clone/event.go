package clone

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/tidwall/gjson"
)

const (
	ConferenceTypeBridge   = "BRIDGE"
	ConferenceTypeExternal = "EXTERNAL"
)

// ErrEventLookup is returned when the source event cannot be fetched or read.
var ErrEventLookup = errors.New("event lookup failed")

// Event is the read-only view of an xMatters event used as a clone source.
type Event struct {
	ID int64
	// Properties are keyed by their locale-stripped names.
	Properties *Properties
	Conference *Conference
	Priority   json.RawMessage
}

// Conference holds the conference bridge details of an event as raw JSON.
// A field that is absent from the event is left empty.
type Conference struct {
	Type         json.RawMessage
	BridgeID     json.RawMessage
	BridgeNumber json.RawMessage
}

// IsExternal reports whether the conference is an EXTERNAL bridge.
func (c Conference) IsExternal() bool {
	t := gjson.ParseBytes(c.Type)
	return t.Type == gjson.String && t.Str == ConferenceTypeExternal
}

// ParseEvent reads an event from the JSON body returned by GET /api/xm/1/events/{id}.
func ParseEvent(body string) (*Event, error) {
	if body == "" {
		return nil, errors.New("empty event body")
	}
	if !gjson.Valid(body) {
		return nil, errors.New("invalid json response")
	}
	data := gjson.Parse(body)
	if !data.IsObject() {
		return nil, errors.New("event is not a json object")
	}
	result := &Event{
		ID:         data.Get("id").Int(),
		Properties: PropertiesFromJSON(data.Get("properties|@stripLocale")),
	}
	result.Priority = rawField(data, "priority")
	if conference := data.Get("conference"); conference.IsObject() {
		result.Conference = &Conference{
			Type:         rawField(conference, "type"),
			BridgeID:     rawField(conference, "bridgeId"),
			BridgeNumber: rawField(conference, "bridgeNumber"),
		}
	}
	return result, nil
}

func rawField(object gjson.Result, path string) json.RawMessage {
	if field := object.Get(path); field.Exists() {
		return json.RawMessage(field.Raw)
	}
	return nil
}

// GetEvent fetches an event by its identifier.
func GetEvent(caller Caller, eventid int64, ctx context.Context) (*Event, error) {
	response := caller.Call(http.MethodGet, fmt.Sprintf("/api/xm/1/events/%d", eventid), true, nil, ctx)
	if !IsValidStatusCode(response.StatusCode) {
		log.Printf("GetEvent returned an error: %d", response.StatusCode)
		return nil, fmt.Errorf("%w: event %d returned status %d", ErrEventLookup, eventid, response.StatusCode)
	}
	event, err := ParseEvent(response.Body)
	if err != nil {
		log.Printf("GetEvent failed to read event %d: %v", eventid, err)
		return nil, fmt.Errorf("%w: event %d %v", ErrEventLookup, eventid, err)
	}
	return event, nil
}
