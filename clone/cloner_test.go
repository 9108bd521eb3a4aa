package clone

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type fakeCall struct {
	Method  string
	Path    string
	Payload interface{}
}

// fakeCaller answers GET requests from events and every POST with postStatus.
type fakeCaller struct {
	events     map[string]Response
	postStatus int
	calls      []fakeCall
}

func (f *fakeCaller) Call(method string, path string, autoencode bool, payload interface{}, ctx context.Context) Response {
	f.calls = append(f.calls, fakeCall{Method: method, Path: path, Payload: payload})
	if method == http.MethodGet {
		if r, exists := f.events[path]; exists {
			return r
		}
		return Response{StatusCode: 404, Body: `{"code":404,"reason":"Not Found"}`}
	}
	return Response{StatusCode: f.postStatus, Body: `{"requestId":"r-1"}`}
}

func (f *fakeCaller) postedTrigger(t *testing.T) *Trigger {
	t.Helper()
	require.NotEmpty(t, f.calls)
	last := f.calls[len(f.calls)-1]
	require.Equal(t, http.MethodPost, last.Method)
	trigger, ok := last.Payload.(*Trigger)
	require.True(t, ok)
	return trigger
}

const formURL = "https://acme.xmatters.com/api/integration/1/functions/abc/triggers"

func newFakeCaller(event string) *fakeCaller {
	return &fakeCaller{
		events:     map[string]Response{"/api/xm/1/events/42": {StatusCode: 200, Body: event}},
		postStatus: 202,
	}
}

func marshalProperties(t *testing.T, properties *Properties) string {
	t.Helper()
	b, err := json.Marshal(properties)
	require.NoError(t, err)
	return string(b)
}

func TestCloneEvent_RejectsInvalidEventID(t *testing.T) {
	for _, eventid := range []int64{0, -1, -42} {
		caller := newFakeCaller(`{}`)
		cloner := Cloner{Caller: caller}

		response, err := cloner.CloneEvent(eventid, formURL, CloneOptions{}, context.Background())

		assert.Nil(t, response)
		assert.ErrorIs(t, err, ErrInvalidEventID)
		assert.Empty(t, caller.calls)
	}
}

func TestCloneEvent_RejectsEmptyTargetURL(t *testing.T) {
	caller := newFakeCaller(`{}`)
	cloner := Cloner{Caller: caller}

	response, err := cloner.CloneEvent(42, "", CloneOptions{}, context.Background())

	assert.Nil(t, response)
	assert.ErrorIs(t, err, ErrInvalidTargetURL)
	assert.Empty(t, caller.calls)
}

func TestTriggerEvent_RejectsInvalidInput(t *testing.T) {
	caller := newFakeCaller(`{}`)
	cloner := Cloner{Caller: caller}

	response, err := cloner.TriggerEvent("", &Trigger{Properties: NewProperties()}, context.Background())
	assert.Nil(t, response)
	assert.ErrorIs(t, err, ErrInvalidTargetURL)

	response, err = cloner.TriggerEvent(formURL, nil, context.Background())
	assert.Nil(t, response)
	assert.ErrorIs(t, err, ErrInvalidTrigger)

	assert.Empty(t, caller.calls)
}

func TestCloneEvent_AbortsWhenLookupFails(t *testing.T) {
	tests := map[string]Response{
		"not found":  {StatusCode: 404, Body: `{"code":404}`},
		"server":     {StatusCode: 500, Body: `{"code":500}`},
		"empty body": {StatusCode: 200, Body: ``},
		"invalid":    {StatusCode: 200, Body: `{"properties":`},
		"not object": {StatusCode: 200, Body: `[1,2]`},
		"exception":  exceptionResponse("XMatters.Call", io.ErrUnexpectedEOF),
	}
	for name, event := range tests {
		t.Run(name, func(t *testing.T) {
			caller := &fakeCaller{events: map[string]Response{"/api/xm/1/events/42": event}, postStatus: 202}
			cloner := Cloner{Caller: caller}

			response, err := cloner.CloneEvent(42, formURL, CloneOptions{}, context.Background())

			assert.Nil(t, response)
			assert.ErrorIs(t, err, ErrEventLookup)
			require.Len(t, caller.calls, 1)
			assert.Equal(t, http.MethodGet, caller.calls[0].Method)
		})
	}
}

func TestCloneEvent_SwapsProperties(t *testing.T) {
	caller := newFakeCaller(`{"id":42,"properties":{"Prop1":"x","prop2#en":"y"}}`)
	cloner := Cloner{Caller: caller}

	response, err := cloner.CloneEvent(42, formURL, CloneOptions{
		PropertyMapping: []PropertyMatcher{
			{SourcePropertyName: "Prop1", TargetPropertyName: "prop2"},
			{SourcePropertyName: "prop2", TargetPropertyName: "Prop1"},
		},
	}, context.Background())

	require.NoError(t, err)
	require.NotNil(t, response)
	assert.Equal(t, 202, response.StatusCode)
	require.Len(t, caller.calls, 2)
	assert.Equal(t, "/api/xm/1/events/42", caller.calls[0].Path)
	assert.Equal(t, formURL, caller.calls[1].Path)

	trigger := caller.postedTrigger(t)
	assert.Equal(t, `{"prop2":"x","Prop1":"y"}`, marshalProperties(t, trigger.Properties))
	assert.Nil(t, trigger.Conference)
	assert.Nil(t, trigger.Recipients)
}

func TestCloneEvent_ReturnsFailedTriggerResponse(t *testing.T) {
	caller := newFakeCaller(`{"id":42,"properties":{"a":1}}`)
	caller.postStatus = 500
	cloner := Cloner{Caller: caller}

	response, err := cloner.CloneEvent(42, formURL, CloneOptions{}, context.Background())

	require.NoError(t, err)
	require.NotNil(t, response)
	assert.Equal(t, 500, response.StatusCode)
}

func TestMapProperties_IsAnAllowList(t *testing.T) {
	event, err := ParseEvent(`{"properties":{"A":1,"C":2}}`)
	require.NoError(t, err)

	result := MapProperties([]PropertyMatcher{{SourcePropertyName: "A", TargetPropertyName: "B"}}, event.Properties)

	assert.Equal(t, `{"B":1}`, marshalProperties(t, result))
}

func TestMapProperties_SkipsMissingAndIncompletePairs(t *testing.T) {
	event, err := ParseEvent(`{"properties":{"A":1,"C":2}}`)
	require.NoError(t, err)

	result := MapProperties([]PropertyMatcher{
		{SourcePropertyName: "missing", TargetPropertyName: "X"},
		{SourcePropertyName: "", TargetPropertyName: "Y"},
		{SourcePropertyName: "C", TargetPropertyName: ""},
		{SourcePropertyName: "C", TargetPropertyName: "C"},
	}, event.Properties)

	assert.Equal(t, `{"C":2}`, marshalProperties(t, result))
}

func TestMapProperties_LastPairForATargetWins(t *testing.T) {
	event, err := ParseEvent(`{"properties":{"A":1,"C":2}}`)
	require.NoError(t, err)

	result := MapProperties([]PropertyMatcher{
		{SourcePropertyName: "A", TargetPropertyName: "T"},
		{SourcePropertyName: "C", TargetPropertyName: "T"},
	}, event.Properties)

	assert.Equal(t, `{"T":2}`, marshalProperties(t, result))
}

func TestBuildTrigger_CopiesAllPropertiesWithoutMapping(t *testing.T) {
	event, err := ParseEvent(`{"properties":{"subject#en":"Outage","Impact":"High","Systems":["db","web"]},"priority":"HIGH"}`)
	require.NoError(t, err)

	trigger := BuildTrigger(event, CloneOptions{})

	assert.Equal(t, `{"subject":"Outage","Impact":"High","Systems":["db","web"]}`, marshalProperties(t, trigger.Properties))
	assert.Equal(t, json.RawMessage(`"HIGH"`), trigger.Priority)
}

func TestBuildTrigger_AdditionalPropertiesWin(t *testing.T) {
	event, err := ParseEvent(`{"properties":{"A":1,"C":2}}`)
	require.NoError(t, err)

	trigger := BuildTrigger(event, CloneOptions{
		PropertyMapping:      []PropertyMatcher{{SourcePropertyName: "A", TargetPropertyName: "B"}},
		AdditionalProperties: map[string]interface{}{"B": 99, "Other Prop1": "Some value"},
	})

	assert.Equal(t, `{"B":99,"Other Prop1":"Some value"}`, marshalProperties(t, trigger.Properties))
}

func TestBuildTrigger_Conference(t *testing.T) {
	external := `{"properties":{},"conference":{"type":"EXTERNAL","bridgeId":"ext-1","bridgeNumber":"5551234"}}`
	bridge := `{"properties":{},"conference":{"type":"BRIDGE","bridgeId":"br-1","bridgeNumber":"88442"}}`

	tests := []struct {
		name     string
		event    string
		options  CloneOptions
		expected string
	}{
		{"external static", external, CloneOptions{IncludeConfDetails: true}, `{"type":"EXTERNAL","bridgeId":"ext-1"}`},
		{"external dynamic", external, CloneOptions{IncludeConfDetails: true, IsDynamicBridge: true}, `{"type":"EXTERNAL","bridgeId":"ext-1","bridgeNumber":"5551234"}`},
		{"bridge", bridge, CloneOptions{IncludeConfDetails: true}, `{"type":"BRIDGE","bridgeId":"br-1","bridgeNumber":"88442"}`},
		{"bridge dynamic", bridge, CloneOptions{IncludeConfDetails: true, IsDynamicBridge: true}, `{"type":"BRIDGE","bridgeId":"br-1","bridgeNumber":"88442"}`},
		{"numeric bridge values", `{"conference":{"type":"BRIDGE","bridgeId":12345,"bridgeNumber":5551234}}`, CloneOptions{IncludeConfDetails: true}, `{"type":"BRIDGE","bridgeId":12345,"bridgeNumber":5551234}`},
		{"missing type", `{"conference":{"bridgeId":"x"}}`, CloneOptions{IncludeConfDetails: true}, `{"bridgeId":"x"}`},
		{"not requested", bridge, CloneOptions{}, ""},
		{"no conference", `{"properties":{"a":1}}`, CloneOptions{IncludeConfDetails: true}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := ParseEvent(tt.event)
			require.NoError(t, err)

			trigger := BuildTrigger(event, tt.options)

			if tt.expected == "" {
				assert.Nil(t, trigger.Conference)
				return
			}
			b, err := json.Marshal(trigger.Conference)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(b))
		})
	}
}

func TestBuildTrigger_StaticExternalBridgeOmitsBridgeNumber(t *testing.T) {
	event, err := ParseEvent(`{"properties":{},"conference":{"type":"EXTERNAL","bridgeId":"ext-1","bridgeNumber":"5551234"}}`)
	require.NoError(t, err)

	b, err := json.Marshal(BuildTrigger(event, CloneOptions{IncludeConfDetails: true}))
	require.NoError(t, err)

	assert.True(t, gjson.GetBytes(b, "conference.bridgeId").Exists())
	assert.False(t, gjson.GetBytes(b, "conference.bridgeNumber").Exists())
}

func TestBuildTrigger_Recipients(t *testing.T) {
	event, err := ParseEvent(`{"properties":{}}`)
	require.NoError(t, err)

	trigger := BuildTrigger(event, CloneOptions{Recipients: []Recipient{}})
	assert.Nil(t, trigger.Recipients)

	recipients := []Recipient{{ID: "mmcbride", RecipientType: "PERSON"}, {ID: "Executives", RecipientType: "GROUP"}}
	trigger = BuildTrigger(event, CloneOptions{Recipients: recipients})
	assert.Equal(t, recipients, trigger.Recipients)
}

// TestCloneEvent_AgainstServer runs a clone end to end through XMatters and a fake xMatters API.
func TestCloneEvent_AgainstServer(t *testing.T) {
	var posted []byte
	router := chi.NewRouter()
	router.Get("/api/xm/1/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") != "42" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":42,"properties":{"Prop1":"x","prop2#en":"y"},"priority":"MEDIUM",` +
			`"conference":{"type":"BRIDGE","bridgeId":"br-1","bridgeNumber":"88442"}}`))
	})
	router.Post("/api/integration/1/functions/abc/triggers", func(w http.ResponseWriter, r *http.Request) {
		posted, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"requestId":"r-1"}`))
	})
	server := httptest.NewServer(router)
	defer server.Close()

	cloner := NewCloner(APISettings{Endpoint: server.URL})
	response, err := cloner.CloneEvent(42, formURL, CloneOptions{
		IncludeConfDetails: true,
		Recipients:         []Recipient{{ID: "jolin|Work Email", RecipientType: "DEVICE"}},
		PropertyMapping: []PropertyMatcher{
			{SourcePropertyName: "Prop1", TargetPropertyName: "prop2"},
			{SourcePropertyName: "prop2", TargetPropertyName: "Prop1"},
		},
	}, context.Background())

	require.NoError(t, err)
	require.NotNil(t, response)
	assert.Equal(t, http.StatusAccepted, response.StatusCode)
	assert.JSONEq(t, `{"requestId":"r-1"}`, response.Body)

	assert.Equal(t, `{"prop2":"x","Prop1":"y"}`, gjson.GetBytes(posted, "properties").Raw)
	assert.JSONEq(t, `{
		"properties": {"prop2":"x","Prop1":"y"},
		"conference": {"type":"BRIDGE","bridgeId":"br-1","bridgeNumber":"88442"},
		"recipients": [{"id":"jolin|Work Email","recipientType":"DEVICE"}],
		"priority": "MEDIUM"
	}`, string(posted))
}
