package handler

import (
	"errors"
	"io"
	"strconv"

	customerapp "github.com/custdesk/backend/internal/application/customer"
	"github.com/custdesk/backend/internal/domain/shared"
	"github.com/custdesk/backend/internal/infrastructure/logger"
	"github.com/custdesk/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FormHandler exposes form sessions: one draft per client, edited field by
// field and submitted to the store
type FormHandler struct {
	BaseHandler
	sessions *customerapp.FormSessions
	list     *customerapp.ListPresenter
}

// NewFormHandler creates a new FormHandler
func NewFormHandler(sessions *customerapp.FormSessions, list *customerapp.ListPresenter) *FormHandler {
	return &FormHandler{sessions: sessions, list: list}
}

// FormResponse is a form session and its current draft
type FormResponse struct {
	FormID string `json:"form_id" example:"6f1c2b9e-3d4a-4c1b-9f3e-2a7d8c5b1e0f"`
	customerapp.DraftSnapshot
}

// SetValueRequest carries the new value of one draft field. An empty
// string clears the field.
type SetValueRequest struct {
	Value *string `json:"value" binding:"required" example:"ABCDE1234F"`
}

// SelectRequest picks the stored record to edit. A missing, null or empty
// tax_id clears the selection.
type SelectRequest struct {
	TaxID *string `json:"tax_id" example:"ABCDE1234F"`
}

// AddAddressResponse reports whether a blank address was appended
type AddAddressResponse struct {
	Added bool `json:"added"`
	FormResponse
}

// SubmitResponse is the outcome of a submit and the draft left afterwards
type SubmitResponse struct {
	Result *customerapp.SubmitResult `json:"result"`
	FormResponse
}

func formResponse(id uuid.UUID, form *customerapp.FormController) FormResponse {
	return FormResponse{FormID: id.String(), DraftSnapshot: form.Draft()}
}

// lookupForm resolves the :id parameter to a live form, writing the error
// response itself when it cannot
func (h *FormHandler) lookupForm(c *gin.Context) (uuid.UUID, *customerapp.FormController, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid form ID format")
		return uuid.Nil, nil, false
	}
	form, err := h.sessions.Get(id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.NotFound(c, "Form session not found")
		} else {
			h.HandleError(c, err)
		}
		return uuid.Nil, nil, false
	}

	ctx, _ := logger.WithFormID(c.Request.Context(), logger.GetGinLogger(c), id.String())
	c.Request = c.Request.WithContext(ctx)
	return id, form, true
}

// Open godoc
// @ID           openForm
// @Summary      Open a form session
// @Description  Starts a form in create mode with a blank draft holding one empty address
// @Tags         forms
// @Produce      json
// @Success      201 {object} APIResponse[FormResponse]
// @Failure      503 {object} ErrorResponse
// @Router       /forms [post]
func (h *FormHandler) Open(c *gin.Context) {
	id, form, err := h.sessions.Open()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	logger.GetGinLogger(c).Info("form session opened", zap.String("form_id", id.String()))
	h.Created(c, formResponse(id, form))
}

// Get godoc
// @ID           getForm
// @Summary      Get a form draft
// @Tags         forms
// @Produce      json
// @Param        id path string true "Form ID" format(uuid)
// @Success      200 {object} APIResponse[FormResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /forms/{id} [get]
func (h *FormHandler) Get(c *gin.Context) {
	id, form, ok := h.lookupForm(c)
	if !ok {
		return
	}
	h.Success(c, formResponse(id, form))
}

// Close godoc
// @ID           closeForm
// @Summary      Close a form session
// @Description  Unmounts the form. Outstanding enrichment calls are dropped.
// @Tags         forms
// @Param        id path string true "Form ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Router       /forms/{id} [delete]
func (h *FormHandler) Close(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid form ID format")
		return
	}
	if err := h.sessions.Close(id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// SetField godoc
// @ID           setFormField
// @Summary      Set a draft field
// @Description  Sets tax_id, full_name, email or mobile_number. A 10-character tax_id schedules PAN verification.
// @Tags         forms
// @Accept       json
// @Produce      json
// @Param        id path string true "Form ID" format(uuid)
// @Param        name path string true "Field name"
// @Param        request body SetValueRequest true "New value"
// @Success      200 {object} APIResponse[FormResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /forms/{id}/fields/{name} [put]
func (h *FormHandler) SetField(c *gin.Context) {
	id, form, ok := h.lookupForm(c)
	if !ok {
		return
	}

	var req SetValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	if err := form.SetField(c.Param("name"), *req.Value); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, formResponse(id, form))
}

// SetAddressField godoc
// @ID           setFormAddressField
// @Summary      Set an address field
// @Description  Sets address_line1, address_line2, postcode, state or city. A 6-character postcode schedules a lookup for that address.
// @Tags         forms
// @Accept       json
// @Produce      json
// @Param        id path string true "Form ID" format(uuid)
// @Param        index path int true "Address index"
// @Param        name path string true "Field name"
// @Param        request body SetValueRequest true "New value"
// @Success      200 {object} APIResponse[FormResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /forms/{id}/addresses/{index}/{name} [put]
func (h *FormHandler) SetAddressField(c *gin.Context) {
	id, form, ok := h.lookupForm(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.BadRequest(c, "Invalid address index")
		return
	}

	var req SetValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	if err := form.SetAddressField(index, c.Param("name"), *req.Value); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, formResponse(id, form))
}

// AddAddress godoc
// @ID           addFormAddress
// @Summary      Append a blank address
// @Description  Does nothing once the draft holds ten addresses; added reports which happened
// @Tags         forms
// @Produce      json
// @Param        id path string true "Form ID" format(uuid)
// @Success      200 {object} APIResponse[AddAddressResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /forms/{id}/addresses [post]
func (h *FormHandler) AddAddress(c *gin.Context) {
	id, form, ok := h.lookupForm(c)
	if !ok {
		return
	}

	added, err := form.AddAddress()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, AddAddressResponse{Added: added, FormResponse: formResponse(id, form)})
}

// Select godoc
// @ID           selectFormRecord
// @Summary      Select the record to edit
// @Description  Loads the stored record with tax_id into the draft (edit mode), or clears the selection when tax_id is empty
// @Tags         forms
// @Accept       json
// @Produce      json
// @Param        id path string true "Form ID" format(uuid)
// @Param        request body SelectRequest true "Selection"
// @Success      200 {object} APIResponse[FormResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /forms/{id}/select [post]
func (h *FormHandler) Select(c *gin.Context) {
	id, form, ok := h.lookupForm(c)
	if !ok {
		return
	}

	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.HandleValidationError(c, err)
		return
	}

	if req.TaxID == nil || *req.TaxID == "" {
		err := form.Select(nil)
		if err != nil {
			h.HandleError(c, err)
			return
		}
	} else if err := h.list.SelectForEdit(c.Request.Context(), form, *req.TaxID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.NotFound(c, "Customer not found")
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, formResponse(id, form))
}

// Submit godoc
// @ID           submitForm
// @Summary      Submit the draft
// @Description  Validates the draft and saves it: edit in edit mode, add in create mode. The selection is cleared afterwards.
// @Tags         forms
// @Produce      json
// @Param        id path string true "Form ID" format(uuid)
// @Success      200 {object} APIResponse[SubmitResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /forms/{id}/submit [post]
func (h *FormHandler) Submit(c *gin.Context) {
	id, form, ok := h.lookupForm(c)
	if !ok {
		return
	}

	result, err := form.Submit(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	logger.L(c.Request.Context()).Info("form submitted",
		zap.String("mode", string(result.Mode)),
		zap.String("tax_id", result.TaxID),
		zap.Bool("saved", result.Saved),
	)
	h.Success(c, SubmitResponse{Result: result, FormResponse: formResponse(id, form)})
}
