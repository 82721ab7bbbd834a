package customer

import "context"

// TaxIDVerification is the outcome of a PAN verification call
type TaxIDVerification struct {
	Valid    bool
	FullName string
}

// TaxIDVerifier checks a tax ID against a remote registry
type TaxIDVerifier interface {
	VerifyTaxID(ctx context.Context, taxID string) (*TaxIDVerification, error)
}

// PostcodeDetails holds the first city and state a postcode resolves to
type PostcodeDetails struct {
	City  string
	State string
}

// PostcodeLookup resolves a postcode to city and state names
type PostcodeLookup interface {
	LookupPostcode(ctx context.Context, postcode string) (*PostcodeDetails, error)
}
