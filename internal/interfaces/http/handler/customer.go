package handler

import (
	customerapp "github.com/custdesk/backend/internal/application/customer"
	"github.com/gin-gonic/gin"
)

// CustomerHandler serves the customer list
type CustomerHandler struct {
	BaseHandler
	list *customerapp.ListPresenter
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(list *customerapp.ListPresenter) *CustomerHandler {
	return &CustomerHandler{list: list}
}

// DeleteCustomerResponse reports how many stored records a delete removed
type DeleteCustomerResponse struct {
	TaxID   string `json:"tax_id" example:"ABCDE1234F"`
	Removed int    `json:"removed" example:"1"`
}

// List godoc
// @ID           listCustomers
// @Summary      List customers
// @Description  Returns every stored customer in insertion order
// @Tags         customers
// @Produce      json
// @Success      200 {object} APIResponse[[]customerapp.CustomerListItem]
// @Failure      500 {object} ErrorResponse
// @Router       /customers [get]
func (h *CustomerHandler) List(c *gin.Context) {
	items, err := h.list.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// Get godoc
// @ID           getCustomerByTaxId
// @Summary      Get customer by tax ID
// @Description  Returns the first stored customer with the tax ID
// @Tags         customers
// @Produce      json
// @Param        tax_id path string true "Tax ID (PAN)"
// @Success      200 {object} APIResponse[customer.Record]
// @Failure      404 {object} ErrorResponse
// @Router       /customers/{tax_id} [get]
func (h *CustomerHandler) Get(c *gin.Context) {
	record, err := h.list.Get(c.Request.Context(), c.Param("tax_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, record)
}

// Delete godoc
// @ID           deleteCustomer
// @Summary      Delete customers by tax ID
// @Description  Removes every stored customer with the tax ID. Deleting an unknown tax ID succeeds with removed=0.
// @Tags         customers
// @Produce      json
// @Param        tax_id path string true "Tax ID (PAN)"
// @Success      200 {object} APIResponse[DeleteCustomerResponse]
// @Failure      500 {object} ErrorResponse
// @Router       /customers/{tax_id} [delete]
func (h *CustomerHandler) Delete(c *gin.Context) {
	taxID := c.Param("tax_id")
	removed, err := h.list.Delete(c.Request.Context(), taxID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, DeleteCustomerResponse{TaxID: taxID, Removed: removed})
}
