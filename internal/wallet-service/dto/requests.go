package dto

type DepositRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	ExternalRef string `json:"external_ref,omitempty"` // repetido não credita de novo
}

type ReserveRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	ExternalRef string `json:"external_ref"` // openingId
}

// SettleRequest serve para commit e refund
type SettleRequest struct {
	UserID      string `json:"userId"`
	ExternalRef string `json:"external_ref"`
}
