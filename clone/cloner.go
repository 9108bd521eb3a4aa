package clone

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
)

var (
	ErrInvalidEventID   = errors.New("eventId must be greater than 0")
	ErrInvalidTargetURL = errors.New("targetURL must not be empty")
	ErrInvalidTrigger   = errors.New("trigger must not be nil")
)

// PropertyMatcher renames a source event property to a target form property.
type PropertyMatcher struct {
	SourcePropertyName string `json:"sourcePropertyName" yaml:"sourcePropertyName"`
	TargetPropertyName string `json:"targetPropertyName" yaml:"targetPropertyName"`
}

// Recipient targets a person, group or device on the triggered event.
type Recipient struct {
	ID            string `json:"id" yaml:"id"`
	RecipientType string `json:"recipientType,omitempty" yaml:"recipientType"`
}

// CloneOptions controls how a source event is reshaped into a new trigger.
// The zero value copies all properties and the priority, and nothing else.
type CloneOptions struct {
	// IncludeConfDetails copies the source event's conference bridge.
	IncludeConfDetails bool `yaml:"includeConfDetails"`
	// IsDynamicBridge marks an EXTERNAL bridge as having a dynamic bridge number,
	// which must then be carried over. Static EXTERNAL bridges must not send one.
	IsDynamicBridge bool `yaml:"isDynamicBridge"`
	// Recipients, when non-empty, are set on the trigger as given.
	Recipients []Recipient `yaml:"recipients"`
	// PropertyMapping, when non-empty, is an allow-list of properties to copy and the names to copy them to.
	PropertyMapping []PropertyMatcher `yaml:"propertyMapping"`
	// AdditionalProperties overwrite any property of the same name.
	AdditionalProperties map[string]interface{} `yaml:"additionalProperties"`
}

// Trigger is the body of a POST to a form's trigger URL.
type Trigger struct {
	Properties *Properties        `json:"properties"`
	Conference *TriggerConference `json:"conference,omitempty"`
	Recipients []Recipient        `json:"recipients,omitempty"`
	Priority   json.RawMessage    `json:"priority,omitempty"`
}

// TriggerConference values are copied verbatim from the source event.
type TriggerConference struct {
	Type         json.RawMessage `json:"type,omitempty"`
	BridgeID     json.RawMessage `json:"bridgeId,omitempty"`
	BridgeNumber json.RawMessage `json:"bridgeNumber,omitempty"`
}

// Cloner re-triggers existing events on other forms.
type Cloner struct {
	Caller Caller
}

// NewCloner returns a Cloner that calls xMatters with the given settings.
func NewCloner(api APISettings) *Cloner {
	return &Cloner{Caller: NewXMatters(api)}
}

// CloneEvent looks up eventid and triggers a new event on targeturl built from it.
// Invalid input or a failed lookup returns a nil response and an error without triggering anything.
// Otherwise the response from the trigger call is returned, whatever its status.
func (c *Cloner) CloneEvent(eventid int64, targeturl string, options CloneOptions, ctx context.Context) (*Response, error) {
	const funcName = "CloneEvent"

	if eventid <= 0 {
		log.Printf("%s - !!! FATAL !!! - eventId %d is not > 0.", funcName, eventid)
		return nil, fmt.Errorf("%w: %d", ErrInvalidEventID, eventid)
	}
	if targeturl == "" {
		log.Printf("%s - !!! FATAL !!! - targetURL is empty.", funcName)
		return nil, ErrInvalidTargetURL
	}

	event, err := GetEvent(c.Caller, eventid, ctx)
	if err != nil {
		log.Printf("%s - failed to get source event %d: %v", funcName, eventid, err)
		return nil, err
	}

	return c.TriggerEvent(targeturl, BuildTrigger(event, options), ctx)
}

// TriggerEvent posts trigger to targeturl.
func (c *Cloner) TriggerEvent(targeturl string, trigger *Trigger, ctx context.Context) (*Response, error) {
	const funcName = "TriggerEvent"

	if targeturl == "" {
		log.Printf("%s - !!! FATAL !!! - targetURL is empty.", funcName)
		return nil, ErrInvalidTargetURL
	}
	if trigger == nil {
		log.Printf("%s - !!! FATAL !!! - trigger is nil.", funcName)
		return nil, ErrInvalidTrigger
	}

	response := c.Caller.Call(http.MethodPost, targeturl, true, trigger, ctx)
	return &response, nil
}

// BuildTrigger derives the trigger for a clone of event.
func BuildTrigger(event *Event, options CloneOptions) *Trigger {
	const funcName = "BuildTrigger"

	result := &Trigger{
		Properties: MapProperties(options.PropertyMapping, event.Properties),
		Priority:   event.Priority,
	}

	result.Properties.Merge(options.AdditionalProperties)

	if options.IncludeConfDetails {
		if event.Conference != nil {
			result.Conference = copyConference(*event.Conference, options.IsDynamicBridge)
		} else {
			log.Printf("%s - Conference details were requested, but the source Event does not contain any Conference details.", funcName)
		}
	}

	if len(options.Recipients) > 0 {
		result.Recipients = options.Recipients
	}

	return result
}

// MapProperties copies source into a new Properties through mappings.
// With no mappings every property is copied unchanged. With mappings only the
// listed source properties are copied, under their target names; when several
// pairs share a target the last one applied wins.
func MapProperties(mappings []PropertyMatcher, source *Properties) *Properties {
	result := NewProperties()
	if source == nil {
		return result
	}
	if len(mappings) == 0 {
		for _, k := range source.Keys() {
			v, _ := source.Get(k)
			result.SetField(k, v)
		}
		return result
	}
	for i, m := range mappings {
		if m.SourcePropertyName == "" || m.TargetPropertyName == "" {
			log.Printf("Warning: sourcePropertyName or targetPropertyName are missing or empty at element %d of the property mapping.", i+1)
			continue
		}
		v, exists := source.Get(m.SourcePropertyName)
		if !exists {
			log.Printf("Warning: %q was not found in the source Event's properties at element %d of the property mapping. Skipping property.", m.SourcePropertyName, i+1)
			continue
		}
		result.SetField(m.TargetPropertyName, v)
	}
	return result
}

func copyConference(conference Conference, isdynamicbridge bool) *TriggerConference {
	result := &TriggerConference{
		Type:     conference.Type,
		BridgeID: conference.BridgeID,
	}
	if conference.IsExternal() {
		if isdynamicbridge {
			result.BridgeNumber = conference.BridgeNumber
		}
		return result
	}
	result.BridgeNumber = conference.BridgeNumber
	return result
}
