package repo

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/slotbox-platform-poc/internal/draw"
)

// CaseSummary é a linha de listagem de caixas ativas
type CaseSummary struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"image_url,omitempty"`
}

// Opening é o registro persistido de uma abertura, com a distribuição usada
type Opening struct {
	ID           string            `json:"id"`
	UserID       string            `json:"userId"`
	CaseID       string            `json:"caseId"`
	PrizeID      string            `json:"prizeId"`
	PrizeName    string            `json:"prizeName"`
	Price        decimal.Decimal   `json:"price"`
	PrizeValue   decimal.Decimal   `json:"prizeValue"`
	RTPTarget    decimal.Decimal   `json:"rtpTarget"`
	Roll         decimal.Decimal   `json:"roll"`
	Distribution draw.Distribution `json:"distribution"`
	CreatedAt    time.Time         `json:"createdAt"`
}
