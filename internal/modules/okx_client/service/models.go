package service

type Instrument struct {
	InstID   string `json:"instId"`
	InstType string `json:"instType"`
	TickSz   string `json:"tickSz"`
	LotSz    string `json:"lotSz"`
	MinSz    string `json:"minSz"`
	State    string `json:"state"`
}

type instrumentsResponse struct {
	Data []Instrument `json:"data"`
}

type candlesResponse struct {
	// [ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm], свежие первыми
	Data [][]string `json:"data"`
}

type tickerResponse struct {
	Data []struct {
		InstID string `json:"instId"`
		Last   string `json:"last"`
	} `json:"data"`
}

type balanceResponse struct {
	Data []struct {
		Details []struct {
			Ccy      string `json:"ccy"`
			AvailBal string `json:"availBal"`
		} `json:"details"`
	} `json:"data"`
}

type orderResponse struct {
	Data []struct {
		OrdID     string `json:"ordId"`
		State     string `json:"state"`
		AccFillSz string `json:"accFillSz"`
		AvgPx     string `json:"avgPx"`
		CTime     string `json:"cTime"`
	} `json:"data"`
}

type pendingResponse struct {
	Data []struct {
		OrdID string `json:"ordId"`
	} `json:"data"`
}

type ackResponse struct {
	Data []ack `json:"data"`
}
