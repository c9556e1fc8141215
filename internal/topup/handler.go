package topup

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

// Handler exposes HTTP endpoints for internal top-ups. User endpoints read
// the caller identity from the JWT middleware; admin endpoints sit behind
// the admin-key gate and are id-scoped.
type Handler struct {
	service *Service
}

// NewHandler constructs a top-up handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create opens a new fingerprinted top-up request.
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
		OwnerEmail:        email,
		Amount:            decimal.NewFromFloat(req.Amount),
		CardID:            req.CardID,
		Currency:          req.Currency,
		UserWalletAddress: req.UserWalletAddress,
		TopupMethod:       req.TopupMethod,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(created))
}

// Get fetches one of the caller's top-up requests.
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

// List returns the caller's top-up requests, newest first.
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
	return c.JSON(fiber.Map{"topups": out})
}

// SubmitHash attaches the user-claimed transaction hash as reviewer evidence.
func (h *Handler) SubmitHash(c *fiber.Ctx) error {
	email, ok := middleware.UserEmail(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "missing user identity")
	}

	var req SubmitHashRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	updated, err := h.service.SubmitHash(c.UserContext(), c.Params("id"), email, req.TransactionHash)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(toResponse(updated))
}

// AdminGet fetches any user's request by id. Admin-gated.
func (h *Handler) AdminGet(c *fiber.Ctx) error {
	req, err := h.service.GetAny(c.UserContext(), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(toResponse(req))
}

// Issue approves, credits, and completes the request as one idempotent call.
// Admin-gated.
func (h *Handler) Issue(c *fiber.Ctx) error {
	var req IssueRequest
	if err := c.BodyParser(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	admin, _ := middleware.AdminIdentity(c)
	issued, err := h.service.Issue(c.UserContext(), c.Params("id"), IssueInput{
		ApprovedBy:      admin,
		TransactionHash: req.TransactionHash,
		AdminNotes:      req.AdminNotes,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(toResponse(issued))
}

// Reject marks a pending or verifying request rejected. Admin-gated.
func (h *Handler) Reject(c *fiber.Ctx) error {
	var req RejectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	rejected, err := h.service.Reject(c.UserContext(), c.Params("id"), RejectInput{
		Reason:     req.Reason,
		AdminNotes: req.AdminNotes,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(toResponse(rejected))
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, reconcile.ErrInvalidAmount):
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
