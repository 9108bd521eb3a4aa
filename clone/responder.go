package clone

import (
	"context"
	"encoding/json"
	"log"
)

// Responder acts on notification responses according to the configured response actions.
type Responder struct {
	Cloner    *Cloner
	Responses map[string]ResponseAction
}

// NewResponder returns a Responder for config.
func NewResponder(config Config) *Responder {
	return &Responder{
		Cloner:    NewCloner(config.API),
		Responses: config.Responses,
	}
}

// HandleNotificationResponse clones the responded-to event when the response keyword
// has an action. An unknown keyword is not an error and returns a nil response.
func (r *Responder) HandleNotificationResponse(payload NotificationResponse, ctx context.Context) (*Response, error) {
	action, exists := r.Responses[payload.Keyword()]
	if !exists {
		log.Printf("Unknown response option: %q", payload.Keyword())
		return nil, nil
	}

	response, err := r.Cloner.CloneEvent(payload.EventIdentifier, action.TargetURL, action.CloneOptions, ctx)
	if err != nil {
		log.Printf("response returned null after calling CloneEvent: %v", err)
		return nil, err
	}
	if b, err := json.MarshalIndent(response, "", "    "); err == nil {
		log.Printf("response after calling CloneEvent: %s", b)
	}
	return response, nil
}
