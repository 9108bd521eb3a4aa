package clone

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/carlmjohnson/requests"
)

// Caller issues a single logical request against xMatters.
type Caller interface {
	Call(method string, path string, autoencode bool, payload interface{}, ctx context.Context) Response
}

// XMatters handles all xMatters API operations against the endpoint configured in API.
type XMatters struct {
	API            APISettings
	RecordRequests bool
	// Transport replaces the default http.RoundTripper when set.
	Transport http.RoundTripper
}

// NewXMatters returns an XMatters for the given settings.
func NewXMatters(api APISettings) *XMatters {
	return &XMatters{API: api}
}

// XMattersAPIBuilder returns a new requests.Builder for the given endpoint-relative path.
func (x XMatters) XMattersAPIBuilder(path string) *requests.Builder {
	result := requests.
		URL(strings.TrimRight(x.API.Endpoint, "/") + path).
		Client(&http.Client{Timeout: x.API.RequestTimeout()})
	if x.Transport != nil {
		result = result.Transport(x.Transport)
	}
	if x.RecordRequests {
		result = result.Transport(requests.Record(x.Transport, "testdata/.requests/xmatters"))
	}
	if x.API.Username != "" {
		result = result.BasicAuth(x.API.Username, x.API.Password)
	}
	return result
}

// Call sends method to path on the xMatters endpoint. A 5xx status or a transport
// failure is retried up to API.Retries() more times; any status below 500 ends the loop,
// as does a cancelled ctx.
// Call never returns an error: a failed send is reported as a 400 response whose body
// carries the reason "Exception".
func (x XMatters) Call(method string, path string, autoencode bool, payload interface{}, ctx context.Context) Response {
	const funcName = "XMatters.Call"
	log.Printf("Enter %s - method: %s, path: %s", funcName, method, path)

	path = x.API.NormalizePath(path)
	if autoencode {
		path = encodePath(path)
	}

	var response Response
	attempts := x.API.Retries() + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		log.Printf("%s - Attempt #%d", funcName, attempt)
		var err error
		response, err = x.send(method, path, payload, ctx)
		if err != nil {
			response = exceptionResponse(funcName, err)
		} else if response.StatusCode < 500 {
			break
		}
		if err := ctx.Err(); err != nil {
			log.Printf("%s - Not retrying: %v", funcName, err)
			break
		}
	}

	if b, err := json.Marshal(response); err == nil {
		log.Printf("Exit %s - response: %s", funcName, b)
	}
	return response
}

func (x XMatters) send(method string, path string, payload interface{}, ctx context.Context) (Response, error) {
	var result Response
	builder := x.XMattersAPIBuilder(path).
		Method(method).
		ContentType("application/json").
		AddValidator(func(response *http.Response) error {
			result.StatusCode = response.StatusCode
			return nil
		}).
		ToString(&result.Body)
	if payload != nil {
		builder = builder.BodyJSON(payload)
	}
	err := builder.Fetch(ctx)
	return result, err
}

// NormalizePath strips everything up to and including the public domain suffix
// so fully qualified form URLs can be issued against the bound endpoint.
func (s APISettings) NormalizePath(path string) string {
	parts := strings.Split(path, s.PublicDomain())
	if len(parts) == 2 {
		path = parts[1]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// encodePath escapes the path portion of an endpoint-relative URL, leaving any query untouched.
func encodePath(path string) string {
	p, query, hasQuery := strings.Cut(path, "?")
	result := (&url.URL{Path: p}).EscapedPath()
	if hasQuery {
		result = fmt.Sprintf("%s?%s", result, query)
	}
	return result
}
