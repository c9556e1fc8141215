package deposit

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/kredo-pay/kredo_pay/internal/ledger"
	"github.com/kredo-pay/kredo_pay/internal/middleware"
	"github.com/kredo-pay/kredo_pay/internal/reconcile"
)

var validate = validator.New()

// Handler exposes HTTP endpoints for deposit requests.
type Handler struct {
	service *Service
}

// NewHandler constructs a deposit handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create opens a new fingerprinted deposit request.
func (h *Handler) Create(c *fiber.Ctx) error {
	email, ok := middleware.UserEmail(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "missing user identity")
	}

	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	created, err := h.service.Create(c.UserContext(), CreateInput{
		OwnerEmail: email,
		Amount:     decimal.NewFromFloat(req.Amount),
		CardID:     req.CardID,
		Currency:   req.Currency,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(created))
}

// Get fetches one of the caller's deposit requests.
func (h *Handler) Get(c *fiber.Ctx) error {
	email, ok := middleware.UserEmail(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "missing user identity")
	}

	req, err := h.service.Get(c.UserContext(), c.Params("id"), email)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(toResponse(req))
}

// List returns the caller's deposit requests, newest first.
func (h *Handler) List(c *fiber.Ctx) error {
	email, ok := middleware.UserEmail(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "missing user identity")
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	reqs, err := h.service.List(c.UserContext(), email, limit)
	if err != nil {
		return toHTTPError(err)
	}

	out := make([]Response, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, toResponse(req))
	}
	return c.JSON(fiber.Map{"deposits": out})
}

// UpdateStatus drives the request state machine, crediting on completion.
func (h *Handler) UpdateStatus(c *fiber.Ctx) error {
	email, ok := middleware.UserEmail(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "missing user identity")
	}

	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	updated, err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), email, UpdateStatusInput{
		Status:          req.Status,
		TransactionHash: req.TransactionHash,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(toResponse(updated))
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, reconcile.ErrInvalidAmount), errors.Is(err, ErrInvalidStatus):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, reconcile.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, reconcile.ErrConflict), errors.Is(err, ledger.ErrAlreadyCredited), errors.Is(err, reconcile.ErrFingerprintExhausted):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, reconcile.ErrExpired):
		return fiber.NewError(http.StatusGone, err.Error())
	case errors.Is(err, reconcile.ErrNoEligibleCard):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
