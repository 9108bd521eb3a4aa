package clone

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// maxPayloadBytes bounds the size of an inbound notification response.
const maxPayloadBytes = 1 << 20

// NotificationResponseResult is written back to the caller of the webhook.
type NotificationResponseResult struct {
	Keyword  string    `json:"keyword"`
	Action   bool      `json:"action"`
	Response *Response `json:"response,omitempty"`
}

// RegisterRoutes registers the webhook routes on r.
func (r *Responder) RegisterRoutes(router chi.Router) {
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Post("/notification-responses", r.ServeNotificationResponse)
}

// NewRouter returns an http.Handler serving the webhook routes.
func NewRouter(responder *Responder) http.Handler {
	router := chi.NewRouter()
	responder.RegisterRoutes(router)
	return router
}

// ServeNotificationResponse is the webhook xMatters calls when a notification is responded to.
func (r *Responder) ServeNotificationResponse(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(io.LimitReader(req.Body, maxPayloadBytes))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	payload, err := ParseNotificationResponse(body)
	if err != nil {
		log.Printf("Warning: rejected notification response: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	_, known := r.Responses[payload.Keyword()]
	response, err := r.HandleNotificationResponse(payload, req.Context())
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, ErrEventLookup) {
			status = http.StatusBadGateway
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	err = json.NewEncoder(w).Encode(NotificationResponseResult{
		Keyword:  payload.Keyword(),
		Action:   known,
		Response: response,
	})
	if err != nil {
		log.Printf("Warning: failed to write notification response result: %v", err)
	}
}
