package narrative

import (
	"context"
	"errors"
	"fmt"

	"sleep-analyzer/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrExternalCall 文本生成服务调用失败（传输错误、配额、超时等）
var ErrExternalCall = errors.New("text generation call failed")

// ChatMessage 角色标注的消息
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionRequest OpenAI 兼容的 chat completions 请求
type chatCompletionRequest struct {
	Model               string        `json:"model"`
	Messages            []ChatMessage `json:"messages"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`
}

// chatCompletionResponse chat completions 响应
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Client 文本生成服务客户端（OpenAI 兼容接口）
type Client struct {
	httpClient *resty.Client
	model      string
	maxTokens  int
	logger     *zap.Logger
}

// NewClient 创建文本生成客户端
// 显式超时：外部调用可能阻塞数秒，不能依赖 provider 默认值
func NewClient(cfg *config.OpenAIConfig, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &Client{
		httpClient: client,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		logger:     logger,
	}
}

// Complete 执行一次 chat completion，返回生成文本
// 任何失败都包装为 ErrExternalCall，由调用方决定降级策略
func (c *Client) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	request := chatCompletionRequest{
		Model:               c.model,
		Messages:            messages,
		MaxCompletionTokens: c.maxTokens,
	}

	var response chatCompletionResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		SetError(&response).
		Post("/chat/completions")

	if err != nil {
		c.logger.Error("Text generation request failed",
			zap.String("model", c.model),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %v", ErrExternalCall, err)
	}

	if resp.IsError() {
		msg := resp.Status()
		if response.Error != nil {
			msg = response.Error.Message
		}
		c.logger.Error("Text generation API returned error",
			zap.String("model", c.model),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("message", msg),
		)
		return "", fmt.Errorf("%w: %s", ErrExternalCall, msg)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices in response", ErrExternalCall)
	}

	return response.Choices[0].Message.Content, nil
}
