package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aiwuxian/resonance-wiki/internal/models"
)

// ErrAdvisorDisabled 没有配置 API Key
var ErrAdvisorDisabled = errors.New("未配置配装建议服务")

const (
	defaultAdvisorTemperature = 0.7
	defaultAdvisorMaxTokens   = 800
)

// AdvisorService 调用 OpenAI 兼容接口给出配装建议
type AdvisorService struct {
	client *openai.Client
	config models.LLMConfig
}

func NewAdvisorService(config models.LLMConfig) *AdvisorService {
	if config.Model == "" {
		config.Model = openai.GPT3Dot5Turbo
	}
	if config.Temperature == 0 {
		config.Temperature = defaultAdvisorTemperature
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = defaultAdvisorMaxTokens
	}

	as := &AdvisorService{config: config}
	if config.APIKey == "" {
		return as
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.APIBase != "" {
		clientConfig.BaseURL = config.APIBase
	}
	as.client = openai.NewClientWithConfig(clientConfig)
	return as
}

// Enabled 是否可用
func (as *AdvisorService) Enabled() bool {
	return as.client != nil
}

// Advise 根据计算结果生成配装建议
func (as *AdvisorService) Advise(ctx context.Context, result *BuildResult) (string, error) {
	if !as.Enabled() {
		return "", ErrAdvisorDisabled
	}

	resp, err := as.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: as.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "你是《鸣潮》配装顾问。根据给出的角色面板，用简短的中文指出最值得优化的两三处，并给出具体的词条或声骸建议。",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildAdvicePrompt(result),
			},
		},
		Temperature: as.config.Temperature,
		MaxTokens:   as.config.MaxTokens,
	})
	if err != nil {
		moduleLog("advisor").Warn().Err(err).Str("model", as.config.Model).Msg("请求配装建议失败")
		return "", fmt.Errorf("请求配装建议失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("配装建议为空")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildAdvicePrompt(result *BuildResult) string {
	var sb strings.Builder

	r := result.Resonator
	fmt.Fprintf(&sb, "角色：%s（%s，%s）\n", r.Name, r.Element, r.Weapon)
	if b := result.Build; b != nil {
		fmt.Fprintf(&sb, "角色等级 %d，武器等级 %d，技能 %d/%d/%d/%d\n", b.CharacterLevel, b.WeaponLevel,
			b.Skills.Basic, b.Skills.Skill, b.Skills.Liberation, b.Skills.Intro)
	}
	if w := result.Weapon; w != nil {
		fmt.Fprintf(&sb, "武器：%s（%s %.1f）\n", w.Name, w.SubStat, w.SubStatValue)
	}

	sb.WriteString("面板：\n")
	for k := StatKind(0); k < StatCount; k++ {
		v := result.Stats.Get(k)
		if v == 0 {
			continue
		}
		if k.IsPercent() {
			fmt.Fprintf(&sb, "- %s: %.1f%%\n", k, v)
		} else {
			fmt.Fprintf(&sb, "- %s: %.0f\n", k, v)
		}
	}
	fmt.Fprintf(&sb, "双暴评分：%.1f\n", result.CritValue.Total)

	if len(result.ActiveSets) == 0 {
		sb.WriteString("套装：无\n")
	}
	for _, set := range result.ActiveSets {
		fmt.Fprintf(&sb, "套装：%s %d 件\n", set.Name, set.Pieces)
	}

	return sb.String()
}
