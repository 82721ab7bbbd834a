package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/custdesk/backend/internal/domain/customer"
	"github.com/custdesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
	assert.NotNil(t, v)
}

func TestFormatValidationErrors_Binding(t *testing.T) {
	type selectRequest struct {
		TaxID string `json:"tax_id" binding:"required,len=10"`
	}

	SetupValidator()

	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req selectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	t.Run("returns validation errors for invalid input", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/test", strings.NewReader(`{"tax_id": "short"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(RequestIDHeader, "req-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "req-1", resp.Error.RequestID)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "tax_id", resp.Error.Details[0].Field)
		assert.Equal(t, "len", resp.Error.Details[0].Tag)
	})

	t.Run("returns success for valid input", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/test", strings.NewReader(`{"tax_id": "ABCDE1234F"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestFormatValidationErrors_Record(t *testing.T) {
	r := customer.NewRecord()
	r.TaxID = "ABCDE1234F"
	r.FullName = "Asha"
	r.Email = "a@example.com"
	r.MobileNumber = "9876543210"
	r.Addresses[0] = customer.Address{AddressLine1: "1 Main Road", State: "Maharashtra", City: "Mumbai"}

	resp := FormatValidationErrors(r.Validate(), "req-2")

	require.NotNil(t, resp.Error)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "addresses[0].postcode", resp.Error.Details[0].Field)
	assert.Equal(t, "This field is required", resp.Error.Details[0].Message)
}

func TestGetValidationMessage(t *testing.T) {
	type sample struct {
		Required string   `validate:"required"`
		Email    string   `validate:"email"`
		Max      string   `validate:"max=3"`
		Len      string   `validate:"len=5"`
		Items    []string `validate:"min=1"`
		OneOf    string   `validate:"oneof=a b"`
	}

	v := validator.New()
	err := v.Struct(sample{Email: "invalid", Max: "toolong", Len: "ab", OneOf: "c"})
	require.Error(t, err)

	got := map[string]string{}
	for _, e := range err.(validator.ValidationErrors) {
		got[e.Field()] = getValidationMessage(e)
	}

	assert.Equal(t, "This field is required", got["Required"])
	assert.Equal(t, "Invalid email format", got["Email"])
	assert.Equal(t, "Must be at most 3 characters", got["Max"])
	assert.Equal(t, "Must be exactly 5 characters", got["Len"])
	assert.Equal(t, "Must have at least 1 entries", got["Items"])
	assert.Equal(t, "Must be one of: a b", got["OneOf"])
}
