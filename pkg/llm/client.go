package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// LLMClient is the chat surface used by the enrichment layer.
type LLMClient interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	ChatStructured(ctx context.Context, req *ChatRequest, target interface{}) error
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	config       *Config
	openaiClient *openai.Client
	logger       Logger
	retryHandler *RetryHandler
	httpClient   *http.Client
}

// ClientOption configures optional client behaviour.
type ClientOption func(*clientOptions)

type clientOptions struct {
	logger     Logger
	retry      *RetryHandler
	httpClient *http.Client
}

// WithLogger injects a custom logger implementation.
func WithLogger(logger Logger) ClientOption {
	return func(opts *clientOptions) {
		opts.logger = logger
	}
}

// WithRetryHandler injects a custom retry handler.
func WithRetryHandler(handler *RetryHandler) ClientOption {
	return func(opts *clientOptions) {
		opts.retry = handler
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(opts *clientOptions) {
		opts.httpClient = client
	}
}

// NewClient constructs a client from cfg.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("llm: config cannot be nil")
	}
	clientCfg := cfg.Clone()
	if err := clientCfg.Validate(); err != nil {
		return nil, err
	}

	optState := clientOptions{}
	for _, opt := range opts {
		opt(&optState)
	}
	if optState.logger == nil {
		optState.logger = NewLogger(clientCfg.LogLevel)
	}
	if optState.retry == nil {
		optState.retry = NewRetryHandler(RetryConfig{MaxRetries: clientCfg.MaxRetries})
	}

	oaOpts := []option.RequestOption{
		option.WithAPIKey(clientCfg.APIKey),
		option.WithBaseURL(clientCfg.BaseURL),
		// Retries are owned by RetryHandler.
		option.WithMaxRetries(0),
	}
	if clientCfg.Timeout > 0 {
		oaOpts = append(oaOpts, option.WithRequestTimeout(clientCfg.Timeout))
	}
	if optState.httpClient != nil {
		oaOpts = append(oaOpts, option.WithHTTPClient(optState.httpClient))
	}
	oaClient := openai.NewClient(oaOpts...)

	return &Client{
		config:       clientCfg,
		openaiClient: &oaClient,
		logger:       optState.logger,
		retryHandler: optState.retry,
		httpClient:   optState.httpClient,
	}, nil
}

// Chat performs a single completion request.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if req == nil {
		return nil, errors.New("llm: request cannot be nil")
	}
	params, modelID, err := c.buildChatParams(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	c.logger.Debug(ctx, "llm chat request", Fields{
		"model":    modelID,
		"messages": len(req.Messages),
	})

	var completion *openai.ChatCompletion
	err = c.retryHandler.Do(ctx, func() error {
		resp, callErr := c.openaiClient.Chat.Completions.New(ctx, params)
		if callErr != nil {
			return callErr
		}
		completion = resp
		return nil
	})
	if err != nil {
		err = describe(err)
		c.logger.Error(ctx, fmt.Errorf("chat completion failed: %w", err), Fields{"model": modelID})
		return nil, err
	}

	result := convertCompletion(completion)
	c.logger.Info(ctx, "llm chat success", Fields{
		"model":             modelID,
		"duration_ms":       time.Since(start).Milliseconds(),
		"prompt_tokens":     result.Usage.PromptTokens,
		"completion_tokens": result.Usage.CompletionTokens,
	})
	return result, nil
}

// ChatStructured requests a JSON-schema constrained reply and decodes it into
// target, which must be a pointer to a struct.
func (c *Client) ChatStructured(ctx context.Context, req *ChatRequest, target interface{}) error {
	if req == nil {
		return errors.New("llm: request cannot be nil")
	}
	value := reflect.ValueOf(target)
	if target == nil || value.Kind() != reflect.Ptr || value.IsNil() {
		return errors.New("llm: structured target must be a non-nil pointer")
	}
	schema, err := GenerateSchema(target)
	if err != nil {
		return err
	}

	strict := true
	structuredReq := *req
	structuredReq.ResponseFormat = &ResponseFormat{
		Type:   "json_schema",
		Name:   schemaName(value),
		Schema: schema,
		Strict: &strict,
	}
	resp, err := c.Chat(ctx, &structuredReq)
	if err != nil {
		return err
	}
	if err := ParseStructured(resp.Text(), target); err != nil {
		c.logger.Error(ctx, err, Fields{"model": resp.Model})
		return err
	}
	return nil
}

// Close releases idle connections held by an injected HTTP client.
func (c *Client) Close() error {
	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
	}
	return nil
}

func (c *Client) buildChatParams(req *ChatRequest) (openai.ChatCompletionNewParams, string, error) {
	if len(req.Messages) == 0 {
		return openai.ChatCompletionNewParams{}, "", errors.New("llm: request requires at least one message")
	}

	alias := strings.TrimSpace(req.Model)
	if alias == "" {
		alias = c.config.DefaultModel
	}
	modelCfg, _ := c.config.Model(alias)
	modelID := alias
	if name := strings.TrimSpace(modelCfg.ModelName); name != "" {
		modelID = name
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(modelID),
		Messages: buildMessageParams(req.Messages),
	}
	if rf, ok := toResponseFormatParam(req.ResponseFormat); ok {
		params.ResponseFormat = rf
	}

	switch {
	case req.Temperature != nil:
		params.Temperature = openai.Float(*req.Temperature)
	case modelCfg.Temperature != nil:
		params.Temperature = openai.Float(*modelCfg.Temperature)
	}
	switch {
	case req.MaxCompletionTokens != nil:
		params.MaxCompletionTokens = openai.Int(int64(*req.MaxCompletionTokens))
	case modelCfg.MaxCompletionTokens != nil:
		params.MaxCompletionTokens = openai.Int(int64(*modelCfg.MaxCompletionTokens))
	}
	return params, modelID, nil
}

func buildMessageParams(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case "system":
			result = append(result, openai.SystemMessage(m.Content))
		case "assistant":
			result = append(result, openai.ChatCompletionMessageParamOfAssistant(m.Content))
		default:
			result = append(result, openai.UserMessage(m.Content))
		}
	}
	return result
}

func toResponseFormatParam(format *ResponseFormat) (openai.ChatCompletionNewParamsResponseFormatUnion, bool) {
	var empty openai.ChatCompletionNewParamsResponseFormatUnion
	if format == nil {
		return empty, false
	}
	switch strings.ToLower(format.Type) {
	case "json_object":
		val := shared.NewResponseFormatJSONObjectParam()
		return openai.ChatCompletionNewParamsResponseFormatUnion{OfJSONObject: &val}, true
	case "json_schema":
		name := format.Name
		if name == "" {
			name = "structured_output"
		}
		jsonSchema := shared.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:   name,
			Schema: format.Schema,
		}
		if format.Strict != nil {
			jsonSchema.Strict = openai.Bool(*format.Strict)
		}
		if desc := strings.TrimSpace(format.Description); desc != "" {
			jsonSchema.Description = openai.String(desc)
		}
		val := shared.ResponseFormatJSONSchemaParam{JSONSchema: jsonSchema}
		val.Type = val.Type.Default()
		return openai.ChatCompletionNewParamsResponseFormatUnion{OfJSONSchema: &val}, true
	default:
		return empty, false
	}
}

func convertCompletion(resp *openai.ChatCompletion) *ChatResponse {
	result := &ChatResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	for _, choice := range resp.Choices {
		result.Choices = append(result.Choices, Choice{
			Index:        int(choice.Index),
			Message:      Message{Role: string(choice.Message.Role), Content: choice.Message.Content},
			FinishReason: choice.FinishReason,
		})
	}
	return result
}

// describe flattens SDK errors; openai.Error.Error() dereferences the
// request and panics when it is nil.
func describe(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("llm: http %d", apiErr.StatusCode)
	}
	return err
}

func schemaName(val reflect.Value) string {
	t := val.Type()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if name := strings.ToLower(t.Name()); name != "" {
		return name
	}
	return "structured_output"
}
