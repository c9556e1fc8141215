package deposit

import "time"

// CreateRequest captures user-provided data to open a deposit request.
type CreateRequest struct {
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	CardID   string  `json:"card_id"`
	Currency string  `json:"currency" validate:"omitempty,alphanum,min=2,max=10"`
}

// UpdateStatusRequest captures a status change and/or a transaction hash.
type UpdateStatusRequest struct {
	Status          string `json:"status" validate:"omitempty,oneof=pending completed failed expired"`
	TransactionHash string `json:"transaction_hash" validate:"omitempty,min=8,max=128"`
}

// Response represents the API shape of a deposit request.
type Response struct {
	ID              string     `json:"id"`
	RequestedAmount string     `json:"requested_amount"`
	ExactAmount     string     `json:"exact_amount"`
	DecimalCode     string     `json:"decimal_code"`
	Currency        string     `json:"currency"`
	UniqueCode      string     `json:"unique_code"`
	WalletAddress   string     `json:"wallet_address"`
	Status          string     `json:"status"`
	CardID          string     `json:"card_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	TransactionHash string     `json:"transaction_hash,omitempty"`
}

func toResponse(req Request) Response {
	return Response{
		ID:              req.ID,
		RequestedAmount: req.RequestedAmount.String(),
		ExactAmount:     req.ExactAmount.StringFixed(3),
		DecimalCode:     req.DecimalCode,
		Currency:        req.Currency,
		UniqueCode:      req.UniqueCode,
		WalletAddress:   req.WalletAddress,
		Status:          string(req.Status),
		CardID:          req.CardID,
		CreatedAt:       req.CreatedAt,
		ExpiresAt:       req.ExpiresAt,
		CompletedAt:     req.CompletedAt,
		TransactionHash: req.TransactionHash,
	}
}
