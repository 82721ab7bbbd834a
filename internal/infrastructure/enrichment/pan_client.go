package enrichment

import (
	"context"
	"net/http"

	"github.com/custdesk/backend/internal/domain/customer"
	"github.com/custdesk/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
)

type panRequest struct {
	PANNumber string `json:"panNumber"`
}

type panResponse struct {
	IsValid  bool   `json:"isValid"`
	FullName string `json:"fullName"`
}

// PANClient verifies tax IDs against the PAN verification service
type PANClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewPANClient creates a PAN verification client
func NewPANClient(cfg Config) (*PANClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &PANClient{
		endpoint:   cfg.PANVerifyURL,
		httpClient: newHTTPClient(cfg),
	}, nil
}

// VerifyTaxID posts taxID and reports whether it is valid and whose it is
func (c *PANClient) VerifyTaxID(ctx context.Context, taxID string) (*customer.TaxIDVerification, error) {
	ctx, span := telemetry.StartSpan(ctx, "enrichment.verify_pan",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrTaxID, taxID),
	)
	defer span.End()

	var resp panResponse
	if err := postJSON(ctx, c.httpClient, c.endpoint, panRequest{PANNumber: taxID}, &resp); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, "pan.valid", resp.IsValid)
	return &customer.TaxIDVerification{
		Valid:    resp.IsValid,
		FullName: resp.FullName,
	}, nil
}

var _ customer.TaxIDVerifier = (*PANClient)(nil)
