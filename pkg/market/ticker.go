package market

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidTicker marks a symbol that is malformed or has no tradable quote.
var ErrInvalidTicker = errors.New("market: invalid ticker")

const maxTickerLength = 10

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.\-]{1,10}$`)

// NormalizeTicker upper-cases and validates a user supplied symbol.
func NormalizeTicker(raw string) (string, error) {
	ticker := strings.ToUpper(strings.TrimSpace(raw))
	if ticker == "" || len(ticker) > maxTickerLength {
		return "", fmt.Errorf("%w: ticker must be 1-%d characters", ErrInvalidTicker, maxTickerLength)
	}
	if !tickerPattern.MatchString(ticker) {
		return "", fmt.Errorf("%w: %q may only contain letters, digits, dots and hyphens", ErrInvalidTicker, raw)
	}
	if strings.Contains(ticker, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidTicker, raw)
	}
	return ticker, nil
}
