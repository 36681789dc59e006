// Package enrich produces the language-model backed parts of a view: the
// narrative summary and the peer list.
package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"tickerlens-api/pkg/llm"
	"tickerlens-api/pkg/market"
	"tickerlens-api/pkg/prompt"
)

// NarrativeUnavailable is shown whenever no summary can be produced.
const NarrativeUnavailable = "AI summary unavailable for this ticker right now."

const (
	defaultPeerCount = 4
	narrativeSystem  = "You write short, factual market summaries."
	peersSystem      = "You are an equity research assistant. Answer with JSON only."
)

// Enricher wraps an LLM client with the narrative and peer prompts.
type Enricher struct {
	client    llm.LLMClient
	peers     *prompt.Template
	model     string
	peerCount int
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithModel selects a model alias other than the client default.
func WithModel(model string) Option {
	return func(e *Enricher) {
		e.model = strings.TrimSpace(model)
	}
}

// WithPeerCount sets how many peers the prompt asks for.
func WithPeerCount(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.peerCount = n
		}
	}
}

// WithPeersTemplate overrides the builtin peers prompt.
func WithPeersTemplate(t *prompt.Template) Option {
	return func(e *Enricher) {
		if t != nil {
			e.peers = t
		}
	}
}

// New constructs an Enricher.
func New(client llm.LLMClient, opts ...Option) (*Enricher, error) {
	if client == nil {
		return nil, fmt.Errorf("enrich: llm client is required")
	}
	e := &Enricher{client: client, peerCount: defaultPeerCount}
	for _, opt := range opts {
		opt(e)
	}
	if e.peers == nil {
		tpl, err := prompt.Builtin(prompt.PeersTemplate)
		if err != nil {
			return nil, err
		}
		e.peers = tpl
	}
	return e, nil
}

// Narrative sends promptText to the model. It fails closed: an empty prompt
// yields the placeholder without a model call, and a model failure yields the
// placeholder together with the error.
func (e *Enricher) Narrative(ctx context.Context, promptText string) (string, error) {
	if strings.TrimSpace(promptText) == "" {
		return NarrativeUnavailable, nil
	}
	resp, err := e.client.Chat(ctx, &llm.ChatRequest{
		Model:    e.model,
		Messages: []llm.Message{llm.System(narrativeSystem), llm.User(promptText)},
	})
	if err != nil {
		return NarrativeUnavailable, fmt.Errorf("enrich: narrative: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return NarrativeUnavailable, fmt.Errorf("enrich: narrative: empty completion")
	}
	return text, nil
}

type peerReply struct {
	Peers []string `json:"peers" description:"ticker symbols of comparable companies"`
}

// Peers asks the model for comparable tickers. Invalid symbols, duplicates and
// the ticker itself are dropped; the count is not enforced.
func (e *Enricher) Peers(ctx context.Context, ticker, companyName string) ([]string, error) {
	if strings.TrimSpace(companyName) == "" {
		companyName = ticker
	}
	text, err := e.peers.Render(prompt.PeersData{Ticker: ticker, Name: companyName, Count: e.peerCount})
	if err != nil {
		return nil, fmt.Errorf("enrich: peers prompt: %w", err)
	}
	var reply peerReply
	err = e.client.ChatStructured(ctx, &llm.ChatRequest{
		Model:    e.model,
		Messages: []llm.Message{llm.System(peersSystem), llm.User(text)},
	}, &reply)
	if err != nil {
		return nil, fmt.Errorf("enrich: peers: %w", err)
	}
	peers := SanitizePeers(ticker, reply.Peers)
	logx.WithContext(ctx).Debugf("enrich: peers ticker=%s raw=%d kept=%d", ticker, len(reply.Peers), len(peers))
	return peers, nil
}

// SanitizePeers normalises symbols and removes invalid entries, duplicates
// and self references while keeping model order.
func SanitizePeers(ticker string, raw []string) []string {
	self := strings.ToUpper(strings.TrimSpace(ticker))
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		sym, err := market.NormalizeTicker(strings.TrimPrefix(strings.TrimSpace(r), "$"))
		if err != nil || sym == self {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}
