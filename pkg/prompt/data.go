package prompt

import "tickerlens-api/pkg/market"

const (
	NarrativeTemplate = "narrative.tmpl"
	PeersTemplate     = "peers.tmpl"
)

// NarrativeData feeds the narrative template.
type NarrativeData struct {
	Ticker string
	Name   string
	News   []market.NewsItem
}

// PeersData feeds the peer discovery template.
type PeersData struct {
	Ticker string
	Name   string
	Count  int
}
