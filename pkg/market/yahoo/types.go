package yahoo

import (
	"encoding/json"
	"time"
)

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResponse struct {
	Chart struct {
		Result []ChartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

// ChartResult is a single symbol chart payload.
type ChartResult struct {
	Meta       ChartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// ChartMeta carries the quote fields embedded in a chart response.
type ChartMeta struct {
	Symbol               string  `json:"symbol"`
	Currency             string  `json:"currency"`
	ExchangeName         string  `json:"exchangeName"`
	FullExchangeName     string  `json:"fullExchangeName"`
	LongName             string  `json:"longName"`
	ShortName            string  `json:"shortName"`
	RegularMarketPrice   float64 `json:"regularMarketPrice"`
	RegularMarketTime    int64   `json:"regularMarketTime"`
	RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
	ChartPreviousClose   float64 `json:"chartPreviousClose"`
	PreviousClose        float64 `json:"previousClose"`
	ExchangeTimezoneName string  `json:"exchangeTimezoneName"`
	CurrentTradingPeriod struct {
		Pre     TradingPeriod `json:"pre"`
		Regular TradingPeriod `json:"regular"`
		Post    TradingPeriod `json:"post"`
	} `json:"currentTradingPeriod"`
	TradingPeriods json.RawMessage `json:"tradingPeriods"`
}

// TradingPeriod is a [Start, End) window in unix seconds.
type TradingPeriod struct {
	Timezone  string `json:"timezone"`
	Start     int64  `json:"start"`
	End       int64  `json:"end"`
	GMTOffset int64  `json:"gmtoffset"`
}

func (p TradingPeriod) contains(ts int64) bool {
	return p.End > p.Start && ts >= p.Start && ts < p.End
}

// regularPeriods returns every regular-session window in the response.
// With includePrePost the periods are keyed by session, otherwise they are a
// bare list of regular windows per day.
func (m ChartMeta) regularPeriods() []TradingPeriod {
	var out []TradingPeriod
	if len(m.TradingPeriods) > 0 {
		var keyed struct {
			Regular [][]TradingPeriod `json:"regular"`
		}
		if err := json.Unmarshal(m.TradingPeriods, &keyed); err == nil {
			for _, day := range keyed.Regular {
				out = append(out, day...)
			}
		} else {
			var plain [][]TradingPeriod
			if err := json.Unmarshal(m.TradingPeriods, &plain); err == nil {
				for _, day := range plain {
					out = append(out, day...)
				}
			}
		}
	}
	if len(out) == 0 && m.CurrentTradingPeriod.Regular.End > 0 {
		out = append(out, m.CurrentTradingPeriod.Regular)
	}
	return out
}

func (m ChartMeta) marketTime() time.Time {
	if m.RegularMarketTime == 0 {
		return time.Time{}
	}
	return time.Unix(m.RegularMarketTime, 0).UTC()
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []SummaryResult `json:"result"`
		Error  *apiError       `json:"error"`
	} `json:"quoteSummary"`
}

// rawValue is Yahoo's {raw, fmt} number envelope.
type rawValue struct {
	Raw float64 `json:"raw"`
}

// SummaryResult holds the quoteSummary modules the provider asks for.
type SummaryResult struct {
	Price *struct {
		LongName     string `json:"longName"`
		ShortName    string `json:"shortName"`
		ExchangeName string `json:"exchangeName"`
	} `json:"price"`
	AssetProfile *struct {
		LongBusinessSummary string `json:"longBusinessSummary"`
		Sector              string `json:"sector"`
		Industry            string `json:"industry"`
	} `json:"assetProfile"`
	FinancialData *struct {
		RecommendationMean      rawValue `json:"recommendationMean"`
		RecommendationKey       string   `json:"recommendationKey"`
		NumberOfAnalystOpinions rawValue `json:"numberOfAnalystOpinions"`
		TargetLowPrice          rawValue `json:"targetLowPrice"`
		TargetMeanPrice         rawValue `json:"targetMeanPrice"`
		TargetMedianPrice       rawValue `json:"targetMedianPrice"`
		TargetHighPrice         rawValue `json:"targetHighPrice"`
	} `json:"financialData"`
	RecommendationTrend *struct {
		Trend []struct {
			Period     string `json:"period"`
			StrongBuy  int    `json:"strongBuy"`
			Buy        int    `json:"buy"`
			Hold       int    `json:"hold"`
			Sell       int    `json:"sell"`
			StrongSell int    `json:"strongSell"`
		} `json:"trend"`
	} `json:"recommendationTrend"`
}
