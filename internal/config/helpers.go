package config

import (
	"fmt"

	"tickerlens-api/pkg/confkit"
	"tickerlens-api/pkg/llm"
	"tickerlens-api/pkg/market"
	"tickerlens-api/pkg/news"
)

// MustLoadMarket loads etc/market.yaml from the project root and panics on error.
func MustLoadMarket() *market.Config {
	return market.MustLoad()
}

// MustLoadNews loads etc/news.yaml from the project root and panics on error.
func MustLoadNews() *news.Config {
	path := confkit.MustProjectPath("etc/news.yaml")
	cfg, err := news.LoadConfig(path)
	if err != nil {
		panic(fmt.Errorf("load news config %s: %w", path, err))
	}
	return cfg
}

// MustLoadLLM loads etc/llm.yaml from the project root and panics on error.
func MustLoadLLM() *llm.Config {
	path := confkit.MustProjectPath("etc/llm.yaml")
	cfg, err := llm.LoadConfig(path)
	if err != nil {
		panic(fmt.Errorf("load llm config %s: %w", path, err))
	}
	return cfg
}
