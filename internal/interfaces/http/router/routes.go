package router

import (
	"github.com/custdesk/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// CustomerRoutes exposes the customer list and its SSE stream
func CustomerRoutes(h *handler.CustomerHandler, stream *handler.CustomerStreamHandler) *DomainGroup {
	g := NewDomainGroup("customers", "/customers")
	g.GET("", h.List)
	if stream != nil {
		g.GET("/stream", stream.Stream)
	}
	g.GET("/:tax_id", h.Get)
	g.DELETE("/:tax_id", h.Delete)
	return g
}

// FormRoutes exposes form sessions. perForm, when set, runs before every
// route that addresses an existing form, e.g. a per-form rate limit.
func FormRoutes(h *handler.FormHandler, perForm gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("forms", "/forms")
	g.POST("", h.Open)

	form := g.Group("form", "/:id")
	if perForm != nil {
		form.Use(perForm)
	}
	form.GET("", h.Get)
	form.DELETE("", h.Close)
	form.PUT("/fields/:name", h.SetField)
	form.POST("/addresses", h.AddAddress)
	form.PUT("/addresses/:index/:name", h.SetAddressField)
	form.POST("/select", h.Select)
	form.POST("/submit", h.Submit)
	return g
}

// SystemRoutes exposes service info and ping
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	g := NewDomainGroup("system", "/system")
	g.GET("/info", h.GetSystemInfo)
	g.GET("/ping", h.Ping)
	return g
}
