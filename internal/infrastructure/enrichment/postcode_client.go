package enrichment

import (
	"context"
	"errors"
	"net/http"

	"github.com/custdesk/backend/internal/domain/customer"
	"github.com/custdesk/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
)

// ErrPostcodeNotFound is returned when the service has no details for a postcode
var ErrPostcodeNotFound = errors.New("enrichment: postcode not found")

const postcodeStatusSuccess = "Success"

type postcodeRequest struct {
	Postcode string `json:"postcode"`
}

type namedEntry struct {
	Name string `json:"name"`
}

type postcodeResponse struct {
	Status string       `json:"status"`
	City   []namedEntry `json:"city"`
	State  []namedEntry `json:"state"`
}

// PostcodeClient resolves postcodes to city and state names
type PostcodeClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewPostcodeClient creates a postcode lookup client
func NewPostcodeClient(cfg Config) (*PostcodeClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &PostcodeClient{
		endpoint:   cfg.PostcodeURL,
		httpClient: newHTTPClient(cfg),
	}, nil
}

// LookupPostcode returns the first city and state listed for postcode
func (c *PostcodeClient) LookupPostcode(ctx context.Context, postcode string) (*customer.PostcodeDetails, error) {
	ctx, span := telemetry.StartSpan(ctx, "enrichment.lookup_postcode",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrPostcode, postcode),
	)
	defer span.End()

	var resp postcodeResponse
	if err := postJSON(ctx, c.httpClient, c.endpoint, postcodeRequest{Postcode: postcode}, &resp); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if resp.Status != postcodeStatusSuccess || len(resp.City) == 0 || len(resp.State) == 0 {
		telemetry.RecordError(span, ErrPostcodeNotFound)
		return nil, ErrPostcodeNotFound
	}

	return &customer.PostcodeDetails{
		City:  resp.City[0].Name,
		State: resp.State[0].Name,
	}, nil
}

var _ customer.PostcodeLookup = (*PostcodeClient)(nil)
