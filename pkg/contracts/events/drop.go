package events

// Drop é o payload do feed ao vivo de prêmios (canal "case_drops_broadcast")
type Drop struct {
	OpeningID     string `json:"openingId"`
	CaseID        string `json:"caseId"`
	CaseName      string `json:"caseName"`
	PrizeName     string `json:"prizeName"`
	PrizeImageURL string `json:"prizeImageUrl,omitempty"`
	PrizeValue    string `json:"prizeValue"`
	TsUnixMs      int64  `json:"ts"`
}
