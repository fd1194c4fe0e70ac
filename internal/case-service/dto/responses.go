package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/slotbox-platform-poc/internal/draw"
)

type PrizeView struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Value    decimal.Decimal  `json:"value"`
	ImageURL string           `json:"image_url,omitempty"`
	Chance   *decimal.Decimal `json:"chance,omitempty"` // probabilidade base pelo peso
}

type CaseDetail struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Active bool            `json:"active"`
	Prizes []PrizeView     `json:"prizes"`
}

// NewCaseDetail monta a visão pública com a chance base de cada prêmio elegível
func NewCaseDetail(c draw.Case) CaseDetail {
	eligible := c.Eligible()
	total := decimal.Zero
	for _, p := range eligible {
		total = total.Add(p.Weight)
	}
	out := CaseDetail{ID: c.ID, Name: c.Name, Price: c.Price, Active: c.Active, Prizes: make([]PrizeView, 0, len(eligible))}
	for _, p := range eligible {
		v := PrizeView{ID: p.ID, Name: p.Name, Value: p.Value, ImageURL: p.ImageURL}
		if total.IsPositive() {
			ch := p.Weight.DivRound(total, 6)
			v.Chance = &ch
		}
		out.Prizes = append(out.Prizes, v)
	}
	return out
}

type OpenCaseResponse struct {
	OpeningID string          `json:"openingId"`
	CaseID    string          `json:"caseId"`
	Price     decimal.Decimal `json:"price"`
	Prize     PrizeView       `json:"prize"`
	Roll      decimal.Decimal `json:"roll"`
	RTPTarget decimal.Decimal `json:"rtpTarget"`
	CreatedAt time.Time       `json:"createdAt"`
}

type RTPResponse struct {
	RTPTarget      decimal.Decimal  `json:"rtp_target"`
	RTPRecommended *decimal.Decimal `json:"rtp_recommended,omitempty"`
	UpdatedBy      string           `json:"updated_by"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// StatsResponse agrega o RTP realizado (global e por caixa)
type StatsResponse struct {
	CaseID       string          `json:"caseId,omitempty"`
	Openings     int64           `json:"openings"`
	WageredCents int64           `json:"wagered_cents"`
	PayoutCents  int64           `json:"payout_cents"`
	RealizedRTP  decimal.Decimal `json:"realized_rtp"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
