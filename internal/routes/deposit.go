package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kredo-pay/kredo_pay/internal/deposit"
)

// RegisterDepositRoutes wires the crypto deposit endpoints.
func RegisterDepositRoutes(r fiber.Router, h *deposit.Handler, createLimit fiber.Handler) {
	r.Post("/deposits", createLimit, h.Create)
	r.Get("/deposits", h.List)
	r.Get("/deposits/:id", h.Get)
	r.Patch("/deposits/:id", h.UpdateStatus)
}
