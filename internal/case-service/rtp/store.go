package rtp

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/slotbox-platform-poc/internal/draw"
)

// DefaultTarget é o RTP usado quando a configuração é criada pela primeira vez
var DefaultTarget = decimal.NewFromInt(50)

var (
	minPercent = decimal.Zero
	maxPercent = decimal.NewFromInt(100)
)

// Snapshot é uma leitura consistente da configuração de RTP.
// Um sorteio usa exatamente um snapshot.
type Snapshot struct {
	Target      decimal.Decimal  `json:"rtp_target"`
	Recommended *decimal.Decimal `json:"rtp_recommended,omitempty"`
	UpdatedBy   string           `json:"updated_by,omitempty"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Update é a alteração administrativa da configuração
type Update struct {
	Target      decimal.Decimal
	Recommended *decimal.Decimal
	UpdatedBy   string
}

type Store interface {
	Current(ctx context.Context) (Snapshot, error)
	Update(ctx context.Context, u Update) (Snapshot, error)
}

func ValidateUpdate(u Update) error {
	if !inRange(u.Target) {
		return fmt.Errorf("%w: rtp_target %s outside [0,100]", draw.ErrInvalidConfiguration, u.Target)
	}
	if u.Recommended != nil && !inRange(*u.Recommended) {
		return fmt.Errorf("%w: rtp_recommended %s outside [0,100]", draw.ErrInvalidConfiguration, *u.Recommended)
	}
	if u.UpdatedBy == "" {
		return fmt.Errorf("%w: updated_by required", draw.ErrInvalidConfiguration)
	}
	return nil
}

func inRange(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(minPercent) && d.LessThanOrEqual(maxPercent)
}
