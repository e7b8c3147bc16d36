package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"ai-orchestrator-be/internal/pipeline"
	"ai-orchestrator-be/pkg/llm"
)

const DefaultBaseURL = "https://openrouter.ai/api"

// Provider is the cloud transport. Credential handling lives here: an empty
// key never leaves the process, a rejected key maps to AuthError.
type Provider struct {
	BaseURL   string
	APIKey    string
	ModelName string
	Client    *http.Client
}

var _ llm.LLMProvider = &Provider{}

func NewProvider(baseURL, apiKey, modelName string, timeout time.Duration) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Provider{
		BaseURL:   baseURL,
		APIKey:    apiKey,
		ModelName: modelName,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []llm.Message   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Model is a cloud catalog entry for the presentation layer's picker.
type Model struct {
	Id            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	PromptPrice   string `json:"prompt_price"`
	CompletePrice string `json:"completion_price"`
	ContextLength int    `json:"context_length"`
}

func (m Model) IsFree() bool {
	return m.PromptPrice == "0" && m.CompletePrice == "0"
}

type modelListResponse struct {
	Data []struct {
		Id            string  `json:"id"`
		Name          string  `json:"name"`
		Description   *string `json:"description"`
		ContextLength int     `json:"context_length"`
		Pricing       struct {
			Prompt     string `json:"prompt"`
			Completion string `json:"completion"`
		} `json:"pricing"`
	} `json:"data"`
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	if p.APIKey == "" {
		return "", pipeline.NewError(pipeline.KindAuth, "cloud api key is not configured")
	}

	opts := &llm.Options{
		MaxTokens: 1024,
	}
	for _, o := range options {
		o(opts)
	}

	model := p.ModelName
	if opts.Model != "" {
		model = opts.Model
	}

	reqBody := chatRequest{
		Model:     model,
		Messages:  history,
		MaxTokens: opts.MaxTokens,
	}
	if opts.JSONOutput {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.BaseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", llm.ClassifyTransportError(err, p.BaseURL)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		return "", pipeline.NewError(pipeline.KindAuth, "cloud provider rejected the api key")
	}
	if resp.StatusCode != http.StatusOK {
		return "", pipeline.NewError(pipeline.KindModel,
			fmt.Sprintf("cloud api error (status %d): %s", resp.StatusCode, string(bodyBytes)))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(bodyBytes, &chatResp); err != nil {
		return "", pipeline.WrapError(pipeline.KindModel, "unparseable cloud api response", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", pipeline.NewError(pipeline.KindModel, "no response choices from cloud model")
	}

	return chatResp.Choices[0].Message.Content, nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

// ListModels fetches the cloud catalog, free models first, then by name.
func (p *Provider) ListModels(ctx context.Context) ([]Model, error) {
	if p.APIKey == "" {
		return nil, pipeline.NewError(pipeline.KindAuth, "cloud api key is not configured")
	}

	url := p.BaseURL + "/v1/models"
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, llm.ClassifyTransportError(err, p.BaseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, pipeline.NewError(pipeline.KindAuth, "cloud provider rejected the api key")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, pipeline.NewError(pipeline.KindModel,
			fmt.Sprintf("cloud model list error: status %d", resp.StatusCode))
	}

	var listResp modelListResponse
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return nil, pipeline.WrapError(pipeline.KindModel, "unparseable cloud model list", err)
	}

	models := make([]Model, 0, len(listResp.Data))
	for _, raw := range listResp.Data {
		description := "No description available"
		if raw.Description != nil {
			description = *raw.Description
		}
		models = append(models, Model{
			Id:            raw.Id,
			Name:          raw.Name,
			Description:   description,
			PromptPrice:   raw.Pricing.Prompt,
			CompletePrice: raw.Pricing.Completion,
			ContextLength: raw.ContextLength,
		})
	}

	sort.SliceStable(models, func(i, j int) bool {
		if models[i].IsFree() != models[j].IsFree() {
			return models[i].IsFree()
		}
		return models[i].Name < models[j].Name
	})

	return models, nil
}
