package draw

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Prize é um resultado possível da abertura de uma caixa
type Prize struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Value    decimal.Decimal `json:"value"`
	Weight   decimal.Decimal `json:"weight"` // probabilidade normalizada ou peso relativo
	Active   bool            `json:"active"`
	ImageURL string          `json:"image_url,omitempty"`
}

// Case é a caixa comprável com seus prêmios carregados
type Case struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Active bool            `json:"active"`
	Prizes []Prize         `json:"prizes"`
}

// NewCase monta uma Case e valida os invariantes antes de devolvê-la
func NewCase(id, name string, price decimal.Decimal, active bool, prizes []Prize) (Case, error) {
	c := Case{ID: id, Name: name, Price: price, Active: active, Prizes: prizes}
	if err := c.Validate(); err != nil {
		return Case{}, err
	}
	return c, nil
}

// Validate confere preço positivo, pesos e valores não negativos e
// pelo menos um prêmio elegível (ativo e com peso positivo)
func (c Case) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: case id required", ErrInvalidCaseState)
	}
	if !c.Price.IsPositive() {
		return fmt.Errorf("%w: case %s price must be positive, got %s", ErrInvalidCaseState, c.ID, c.Price)
	}
	for _, p := range c.Prizes {
		if p.Weight.IsNegative() {
			return fmt.Errorf("%w: prize %s has negative weight %s", ErrInvalidCaseState, p.ID, p.Weight)
		}
		if p.Value.IsNegative() {
			return fmt.Errorf("%w: prize %s has negative value %s", ErrInvalidCaseState, p.ID, p.Value)
		}
	}
	if len(c.Eligible()) == 0 {
		return fmt.Errorf("%w: case %s has no active prize with positive weight", ErrInvalidCaseState, c.ID)
	}
	return nil
}

// Eligible retorna os prêmios ativos com peso positivo.
// Prêmio ativo com peso zero fica fora do sorteio.
func (c Case) Eligible() []Prize {
	out := make([]Prize, 0, len(c.Prizes))
	for _, p := range c.Prizes {
		if p.Active && p.Weight.IsPositive() {
			out = append(out, p)
		}
	}
	return out
}
