package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	customerapp "github.com/custdesk/backend/internal/application/customer"
	"github.com/custdesk/backend/internal/domain/customer"
	"github.com/custdesk/backend/internal/infrastructure/event"
	"github.com/custdesk/backend/internal/infrastructure/persistence"
	"github.com/custdesk/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockTaxIDVerifier is a mock implementation of customer.TaxIDVerifier
type MockTaxIDVerifier struct {
	mock.Mock
}

func (m *MockTaxIDVerifier) VerifyTaxID(ctx context.Context, taxID string) (*customer.TaxIDVerification, error) {
	args := m.Called(ctx, taxID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.TaxIDVerification), args.Error(1)
}

// MockPostcodeLookup is a mock implementation of customer.PostcodeLookup
type MockPostcodeLookup struct {
	mock.Mock
}

func (m *MockPostcodeLookup) LookupPostcode(ctx context.Context, postcode string) (*customer.PostcodeDetails, error) {
	args := m.Called(ctx, postcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.PostcodeDetails), args.Error(1)
}

// testEnv wires the handlers over the in-memory store the way the router does
type testEnv struct {
	store    *persistence.MemoryCustomerStore
	bus      *event.InMemoryEventBus
	verifier *MockTaxIDVerifier
	lookup   *MockPostcodeLookup
	sessions *customerapp.FormSessions
	list     *customerapp.ListPresenter
	stream   *CustomerStreamHandler
	router   *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		bus:      event.NewInMemoryEventBus(zap.NewNop()),
		verifier: new(MockTaxIDVerifier),
		lookup:   new(MockPostcodeLookup),
	}
	env.store = persistence.NewMemoryCustomerStore(env.bus)
	env.list = customerapp.NewListPresenter(env.store)
	env.sessions = customerapp.NewFormSessions(func(uuid.UUID) *customerapp.FormController {
		return customerapp.NewFormController(env.store, env.verifier, env.lookup, customerapp.FormOptions{
			DebounceWindow: 10 * time.Millisecond,
		})
	}, customerapp.SessionConfig{TTL: time.Minute, MaxSessions: 3}, nil, zap.NewNop())
	t.Cleanup(env.sessions.Stop)

	env.stream = NewCustomerStreamHandler(env.list, env.bus, WithSSEHeartbeat(time.Hour))
	require.NoError(t, env.stream.Start())
	t.Cleanup(env.stream.Stop)

	middleware.SetupValidator()
	customers := NewCustomerHandler(env.list)
	forms := NewFormHandler(env.sessions, env.list)

	r := gin.New()
	r.Use(middleware.RequestID())
	api := r.Group("/api/v1")
	api.GET("/customers", customers.List)
	api.GET("/customers/stream", env.stream.Stream)
	api.GET("/customers/:tax_id", customers.Get)
	api.DELETE("/customers/:tax_id", customers.Delete)
	api.POST("/forms", forms.Open)
	api.GET("/forms/:id", forms.Get)
	api.DELETE("/forms/:id", forms.Close)
	api.PUT("/forms/:id/fields/:name", forms.SetField)
	api.POST("/forms/:id/addresses", forms.AddAddress)
	api.PUT("/forms/:id/addresses/:index/:name", forms.SetAddressField)
	api.POST("/forms/:id/select", forms.Select)
	api.POST("/forms/:id/submit", forms.Submit)
	env.router = r

	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// decodeData unmarshals the data field of a success envelope into out
func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()
	var envelope APIResponse[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, w.Body.String())
	require.Nil(t, envelope.Error)
	*out = envelope.Data
}

func (e *testEnv) openForm(t *testing.T) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/forms", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var form FormResponse
	decodeData(t, w, &form)
	return form.FormID
}

func value(v string) map[string]string {
	return map[string]string{"value": v}
}

func sampleRecord(taxID, name string) customer.Record {
	return customer.Record{
		TaxID:        taxID,
		FullName:     name,
		Email:        "someone@example.com",
		MobileNumber: "9876543210",
		Addresses: []customer.Address{{
			AddressLine1: "1 Main Road",
			Postcode:     "400001",
			State:        "Maharashtra",
			City:         "Mumbai",
		}},
	}
}
