package domain

import "time"

// AlertKind distinguishes the pipelines that emit alerts.
type AlertKind string

const (
	AlertKindScan    AlertKind = "scan"
	AlertKindMonitor AlertKind = "monitor"
)

// Alert is published on the signal bus when a market or trade crosses
// a suspicion threshold, and fans out to notifiers and WebSocket
// subscribers.
type Alert struct {
	ID          string    `json:"id"`
	Kind        AlertKind `json:"kind"`
	Platform    Platform  `json:"platform"`
	MarketID    string    `json:"market_id"`
	Question    string    `json:"question"`
	Probability float64   `json:"probability,omitempty"`
	TradeValue  float64   `json:"trade_value,omitempty"`
	Flag        string    `json:"flag,omitempty"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}
