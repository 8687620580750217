package narrative

import (
	"context"

	"sleep-analyzer/internal/models"

	"go.uber.org/zap"
)

// systemPrompt 固定的系统角色
const systemPrompt = "You are a clinical sleep-analysis expert at a hospital. " +
	"Analyze the sleep data and provide professional assessment and practical recommendations. " +
	"Always respond in English."

// FallbackNarrative 外部调用失败时的静态降级文本
const FallbackNarrative = "The AI analysis could not be generated at this time. Please try again later."

// completionClient 文本生成客户端接口（便于测试替换）
type completionClient interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// Generator 叙述生成器：构造 prompt、调用外部服务、抽取推荐项
type Generator struct {
	client completionClient
	logger *zap.Logger
}

// NewGenerator 创建叙述生成器
func NewGenerator(client *Client, logger *zap.Logger) *Generator {
	return &Generator{
		client: client,
		logger: logger,
	}
}

// Generate 生成叙述文本和推荐列表
// 外部调用失败在本层吞掉：返回降级文本和空推荐，绝不向管线抛致命错误
func (g *Generator) Generate(ctx context.Context, session *models.SleepSession, metrics *models.AggregatedMetrics, scores *models.QualityScores) (string, []string) {
	narrative, err := g.Call(ctx, session, metrics, scores)
	if err != nil {
		g.logger.Warn("Text generation failed, using fallback narrative",
			zap.String("session_id", session.SessionID),
			zap.Error(err),
		)
		return FallbackNarrative, []string{}
	}

	return narrative, ExtractRecommendations(narrative)
}

// Call 生成叙述文本，错误向上传递（重新生成路径需要把失败暴露给调用方）
func (g *Generator) Call(ctx context.Context, session *models.SleepSession, metrics *models.AggregatedMetrics, scores *models.QualityScores) (string, error) {
	prompt := BuildPrompt(session, metrics, scores)

	return g.client.Complete(ctx, []ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	})
}
