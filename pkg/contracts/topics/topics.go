package topics

const (
	// Aberturas de caixa
	CaseOpened    = "case_opened"
	CaseOpenedDLQ = "case_opened_dlq"

	// Canais Redis Pub/Sub
	DropsBroadcast = "case_drops_broadcast"
	RTPUpdated     = "rtp_updated"
)
