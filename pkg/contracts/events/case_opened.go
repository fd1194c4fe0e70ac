package events

// Evento publicado no tópico "case_opened" após uma abertura persistida.
// Valores monetários em centavos para somas exatas no processor.
type CaseOpened struct {
	OpeningID       string `json:"opening_id"`
	UserID          string `json:"user_id"`
	CaseID          string `json:"case_id"`
	CaseName        string `json:"case_name"`
	PrizeID         string `json:"prize_id"`
	PrizeName       string `json:"prize_name"`
	PrizeImageURL   string `json:"prize_image_url,omitempty"`
	PriceCents      int64  `json:"price_cents"`
	PrizeValueCents int64  `json:"prize_value_cents"`
	RTPTarget       string `json:"rtp_target"` // decimal como string, ex: "85.50"
	TsUnixMs        int64  `json:"ts_unix_ms"`
}
