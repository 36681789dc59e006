package lookup

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/threading"

	"tickerlens-api/pkg/enrich"
	"tickerlens-api/pkg/market"
	"tickerlens-api/pkg/viewstate"
)

func (o *Orchestrator) launchNarrative(ctx context.Context, tag viewstate.Tag, ticker string, meta market.Metadata, news []market.NewsItem) {
	threading.GoSafe(func() {
		text, err := o.narrative(ctx, ticker, meta, news)
		if err != nil {
			logx.WithContext(ctx).Errorf("lookup: %s narrative: %v", ticker, err)
		}
		o.store.SetNarrative(tag, text, err)
	})
}

func (o *Orchestrator) narrative(ctx context.Context, ticker string, meta market.Metadata, news []market.NewsItem) (string, error) {
	if len(news) == 0 {
		return enrich.NarrativeUnavailable, nil
	}
	text, err := o.buildPrompt(ticker, meta, news)
	if err != nil {
		return enrich.NarrativeUnavailable, fmt.Errorf("render prompt: %w", err)
	}
	out, err := o.gw.Narrative(ctx, text)
	if err != nil {
		return enrich.NarrativeUnavailable, err
	}
	if out == "" {
		out = enrich.NarrativeUnavailable
	}
	return out, nil
}

func (o *Orchestrator) launchRatings(ctx context.Context, tag viewstate.Tag, ticker string) {
	threading.GoSafe(func() {
		ratings, err := o.gw.AnalystRatings(ctx, ticker)
		if err != nil {
			logx.WithContext(ctx).Errorf("lookup: %s analyst ratings: %v", ticker, err)
		}
		o.store.SetRatings(tag, ratings, err)
	})
}

// launchPeers discovers peers and then fans out their series at whatever
// range is active once discovery lands.
func (o *Orchestrator) launchPeers(ctx context.Context, tag viewstate.Tag, ticker, companyName string) {
	threading.GoSafe(func() {
		peers, err := o.gw.Peers(ctx, ticker, companyName)
		if err != nil {
			logx.WithContext(ctx).Errorf("lookup: %s peer discovery: %v", ticker, err)
		}
		if !o.store.SetPeers(tag, peers, err) {
			return
		}
		cur := o.store.Tag()
		if cur.Ticker != tag.Ticker || cur.Epoch != tag.Epoch {
			return
		}
		if err != nil {
			o.store.SettlePeerSeries(cur, fmt.Errorf("peer discovery failed: %w", err))
			return
		}
		o.fanOutPeerSeries(ctx, cur, peers)
	})
}

// relaunchPeerSeries refetches peer series for the range addressed by tag
// using the peer list already in the view.
func (o *Orchestrator) relaunchPeerSeries(ctx context.Context, tag viewstate.Tag, peers viewstate.Slice[[]string]) {
	switch peers.Status {
	case viewstate.StatusReady:
		o.store.ResetPeerSeries(tag)
		threading.GoSafe(func() {
			o.fanOutPeerSeries(ctx, tag, peers.Value)
		})
	case viewstate.StatusFailed:
		o.store.SettlePeerSeries(tag, errors.New("peer discovery failed: "+peers.Err))
	}
	// pending discovery fans out on its own once it lands
}

// refreshPeerSeries refetches peer series after a range change. Results are
// collected off the store and replace the previous slice in one write, so the
// old range stays displayed until the new one is complete.
func (o *Orchestrator) refreshPeerSeries(ctx context.Context, tag viewstate.Tag, peers viewstate.Slice[[]string]) {
	switch peers.Status {
	case viewstate.StatusReady:
		threading.GoSafe(func() {
			value := o.collectPeerSeries(ctx, tag.Range, peers.Value)
			o.store.ReplacePeerSeries(tag, value, nil)
		})
	case viewstate.StatusFailed:
		o.store.ReplacePeerSeries(tag, viewstate.PeerSeries{}, errors.New("peer discovery failed: "+peers.Err))
	}
	// pending discovery fans out on its own once it lands
}

func (o *Orchestrator) collectPeerSeries(ctx context.Context, rng market.Range, peers []string) viewstate.PeerSeries {
	var mu sync.Mutex
	out := viewstate.PeerSeries{Series: make(map[string]market.Series, len(peers))}
	group := threading.NewRoutineGroup()
	for _, peer := range peers {
		peer := peer
		group.RunSafe(func() {
			series, err := o.gw.Series(ctx, peer, rng)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logx.WithContext(ctx).Infof("lookup: peer %s series %s: %v", peer, rng, err)
				if out.Errors == nil {
					out.Errors = make(map[string]string)
				}
				out.Errors[peer] = err.Error()
				return
			}
			out.Series[peer] = series
		})
	}
	group.Wait()
	return out
}

// fanOutPeerSeries fetches every peer concurrently, merging each result as it
// arrives, and settles the slice once all have reported.
func (o *Orchestrator) fanOutPeerSeries(ctx context.Context, tag viewstate.Tag, peers []string) {
	group := threading.NewRoutineGroup()
	for _, peer := range peers {
		peer := peer
		group.RunSafe(func() {
			series, err := o.gw.Series(ctx, peer, tag.Range)
			if err != nil {
				logx.WithContext(ctx).Infof("lookup: peer %s series %s: %v", peer, tag.Range, err)
			}
			o.store.MergePeerSeries(tag, peer, series, err)
		})
	}
	group.Wait()
	o.store.SettlePeerSeries(tag, nil)
}
