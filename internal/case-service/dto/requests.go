package dto

import "github.com/shopspring/decimal"

type OpenCaseRequest struct {
	UserID string `json:"userId"`
}

// UpdateRTPRequest é o corpo de PUT /v1/admin/rtp (percentuais 0..100)
type UpdateRTPRequest struct {
	RTPTarget      *decimal.Decimal `json:"rtp_target"`
	RTPRecommended *decimal.Decimal `json:"rtp_recommended,omitempty"`
}
