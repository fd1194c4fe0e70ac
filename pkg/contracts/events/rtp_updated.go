package events

// Mensagem do canal "rtp_updated"; instâncias descartam o snapshot em cache
type RTPUpdated struct {
	RTPTarget string `json:"rtp_target"`
	UpdatedBy string `json:"updated_by"`
	TsUnixMs  int64  `json:"ts_unix_ms"`
}
