package mcx

import (
	"time"

	"mcxdesk/internal/models"
)

// SourceLive labels data served straight from the exchange.
const SourceLive = "MCX_LIVE"

// rawItem is one element of the exchange's d.Data array. Fields the
// dashboard does not use (quantities, LTT, ExtensionData) are ignored.
type rawItem struct {
	CEStrikePrice   float64 `json:"CE_StrikePrice"`
	CELTP           float64 `json:"CE_LTP"`
	CEAbsChange     float64 `json:"CE_AbsoluteChange"`
	CENetChange     float64 `json:"CE_NetChange"`
	CEVolume        float64 `json:"CE_Volume"`
	CEOpenInterest  float64 `json:"CE_OpenInterest"`
	CEChangeInOI    float64 `json:"CE_ChangeInOI"`
	CEBidPrice      float64 `json:"CE_BidPrice"`
	CEAskPrice      float64 `json:"CE_AskPrice"`
	PELTP           float64 `json:"PE_LTP"`
	PEAbsChange     float64 `json:"PE_AbsoluteChange"`
	PENetChange     float64 `json:"PE_NetChange"`
	PEVolume        float64 `json:"PE_Volume"`
	PEOpenInterest  float64 `json:"PE_OpenInterest"`
	PEChangeInOI    float64 `json:"PE_ChangeInOI"`
	PEBidPrice      float64 `json:"PE_BidPrice"`
	PEAskPrice      float64 `json:"PE_AskPrice"`
	UnderlyingValue float64 `json:"UnderlyingValue"`
}

type rawResponse struct {
	D *struct {
		Data    []rawItem `json:"Data"`
		Summary struct {
			AsOn   string  `json:"AsOn"`
			Count  int     `json:"Count"`
			Status *string `json:"Status"`
		} `json:"Summary"`
	} `json:"d"`
}

func (it rawItem) record() models.OptionRecord {
	return models.OptionRecord{
		Strike: it.CEStrikePrice,
		Put: models.OptionSide{
			LTP:       it.PELTP,
			AbsChange: it.PEAbsChange,
			PctChange: it.PENetChange,
			Volume:    it.PEVolume,
			OI:        it.PEOpenInterest,
			OIChange:  it.PEChangeInOI,
			Bid:       it.PEBidPrice,
			Ask:       it.PEAskPrice,
			Turnover:  it.PELTP * it.PEVolume,
		},
		Call: models.OptionSide{
			LTP:       it.CELTP,
			AbsChange: it.CEAbsChange,
			PctChange: it.CENetChange,
			Volume:    it.CEVolume,
			OI:        it.CEOpenInterest,
			OIChange:  it.CEChangeInOI,
			Bid:       it.CEBidPrice,
			Ask:       it.CEAskPrice,
			Turnover:  it.CELTP * it.CEVolume,
		},
	}
}

// ChainRow is the flat per-strike row served by the proxy endpoint.
type ChainRow struct {
	StrikePrice float64 `json:"STRIKE_PRICE"`

	PELTP      float64 `json:"PE_LTP"`
	PEAbsChng  float64 `json:"PE_ABS_CHNG"`
	PEPerChng  float64 `json:"PE_PER_CHNG"`
	PEVolume   float64 `json:"PE_VOLUME"`
	PEOI       float64 `json:"PE_OI"`
	PEOIChng   float64 `json:"PE_OI_CHNG"`
	PEBid      float64 `json:"PE_BID"`
	PEAsk      float64 `json:"PE_ASK"`
	PETurnover float64 `json:"PE_TURNOVER"`

	CELTP      float64 `json:"CE_LTP"`
	CEAbsChng  float64 `json:"CE_ABS_CHNG"`
	CEPerChng  float64 `json:"CE_PER_CHNG"`
	CEVolume   float64 `json:"CE_VOLUME"`
	CEOI       float64 `json:"CE_OI"`
	CEOIChng   float64 `json:"CE_OI_CHNG"`
	CEBid      float64 `json:"CE_BID"`
	CEAsk      float64 `json:"CE_ASK"`
	CETurnover float64 `json:"CE_TURNOVER"`
}

// ChainResponse is the proxy endpoint's JSON body.
type ChainResponse struct {
	Data            []ChainRow `json:"data"`
	UnderlyingValue float64    `json:"underlyingValue"`
	Timestamp       time.Time  `json:"timestamp"`
	Source          string     `json:"source"`
	Error           string     `json:"error,omitempty"`
}

// RowFromRecord flattens a record into its proxy wire form.
func RowFromRecord(r models.OptionRecord) ChainRow {
	return ChainRow{
		StrikePrice: r.Strike,
		PELTP:       r.Put.LTP,
		PEAbsChng:   r.Put.AbsChange,
		PEPerChng:   r.Put.PctChange,
		PEVolume:    r.Put.Volume,
		PEOI:        r.Put.OI,
		PEOIChng:    r.Put.OIChange,
		PEBid:       r.Put.Bid,
		PEAsk:       r.Put.Ask,
		PETurnover:  r.Put.Turnover,
		CELTP:       r.Call.LTP,
		CEAbsChng:   r.Call.AbsChange,
		CEPerChng:   r.Call.PctChange,
		CEVolume:    r.Call.Volume,
		CEOI:        r.Call.OI,
		CEOIChng:    r.Call.OIChange,
		CEBid:       r.Call.Bid,
		CEAsk:       r.Call.Ask,
		CETurnover:  r.Call.Turnover,
	}
}

// NewChainResponse builds the proxy body for a snapshot.
func NewChainResponse(snap *models.Snapshot) ChainResponse {
	rows := make([]ChainRow, 0, snap.Len())
	for _, r := range snap.Records {
		rows = append(rows, RowFromRecord(r))
	}
	return ChainResponse{
		Data:            rows,
		UnderlyingValue: snap.UnderlyingValue,
		Timestamp:       snap.FetchedAt,
		Source:          SourceLive,
	}
}
