package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kredo-pay/kredo_pay/internal/topup"
)

// RegisterTopupRoutes wires the user-facing internal top-up endpoints.
func RegisterTopupRoutes(r fiber.Router, h *topup.Handler, createLimit fiber.Handler) {
	r.Post("/topups", createLimit, h.Create)
	r.Get("/topups", h.List)
	r.Get("/topups/:id", h.Get)
	r.Post("/topups/:id/hash", h.SubmitHash)
}

// RegisterAdminTopupRoutes wires the admin review endpoints for top-ups.
func RegisterAdminTopupRoutes(r fiber.Router, h *topup.Handler) {
	r.Get("/topups/:id", h.AdminGet)
	r.Post("/topups/:id/issue", h.Issue)
	r.Post("/topups/:id/reject", h.Reject)
}
