package topup

import "time"

// CreateRequest captures user-provided data to open a top-up request.
type CreateRequest struct {
	Amount            float64 `json:"amount" validate:"required,gt=0"`
	CardID            string  `json:"card_id"`
	Currency          string  `json:"currency" validate:"omitempty,alphanum,min=2,max=10"`
	UserWalletAddress string  `json:"user_wallet_address" validate:"required,min=16,max=64"`
	TopupMethod       string  `json:"topup_method" validate:"required,oneof=crypto_transfer manual"`
}

// SubmitHashRequest carries the user-claimed transaction hash.
type SubmitHashRequest struct {
	TransactionHash string `json:"transaction_hash" validate:"required,min=8,max=128"`
}

// IssueRequest carries optional admin issue parameters.
type IssueRequest struct {
	TransactionHash string `json:"transaction_hash" validate:"omitempty,min=8,max=128"`
	AdminNotes      string `json:"admin_notes" validate:"omitempty,max=1024"`
}

// RejectRequest carries the admin rejection reason.
type RejectRequest struct {
	Reason     string `json:"reason" validate:"required,max=512"`
	AdminNotes string `json:"admin_notes" validate:"omitempty,max=1024"`
}

// Response represents the API shape of a top-up request.
type Response struct {
	ID                  string     `json:"id"`
	RequestedAmount     string     `json:"requested_amount"`
	ExactAmount         string     `json:"exact_amount"`
	DecimalCode         string     `json:"decimal_code"`
	Currency            string     `json:"currency"`
	UniqueCode          string     `json:"unique_code"`
	UserWalletAddress   string     `json:"user_wallet_address"`
	SolanaWalletAddress string     `json:"solana_wallet_address"`
	TopupMethod         string     `json:"topup_method"`
	Status              string     `json:"status"`
	CardID              string     `json:"card_id,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	ExpiresAt           time.Time  `json:"expires_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	ApprovedAt          *time.Time `json:"approved_at,omitempty"`
	ApprovedBy          string     `json:"approved_by,omitempty"`
	RejectedAt          *time.Time `json:"rejected_at,omitempty"`
	RejectionReason     string     `json:"rejection_reason,omitempty"`
	AdminNotes          string     `json:"admin_notes,omitempty"`
	TransactionHash     string     `json:"transaction_hash,omitempty"`
}

func toResponse(req Request) Response {
	return Response{
		ID:                  req.ID,
		RequestedAmount:     req.RequestedAmount.String(),
		ExactAmount:         req.ExactAmount.StringFixed(3),
		DecimalCode:         req.DecimalCode,
		Currency:            req.Currency,
		UniqueCode:          req.UniqueCode,
		UserWalletAddress:   req.UserWalletAddress,
		SolanaWalletAddress: req.SolanaWalletAddress,
		TopupMethod:         req.TopupMethod,
		Status:              string(req.Status),
		CardID:              req.CardID,
		CreatedAt:           req.CreatedAt,
		ExpiresAt:           req.ExpiresAt,
		CompletedAt:         req.CompletedAt,
		ApprovedAt:          req.ApprovedAt,
		ApprovedBy:          req.ApprovedBy,
		RejectedAt:          req.RejectedAt,
		RejectionReason:     req.RejectionReason,
		AdminNotes:          req.AdminNotes,
		TransactionHash:     req.TransactionHash,
	}
}
