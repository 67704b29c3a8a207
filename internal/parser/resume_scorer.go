package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"resume-ner-go/internal/config"
	"resume-ner-go/internal/logger"
	"resume-ner-go/internal/types"
)

// ErrInvalidScoreResponse 模型输出无法解析为评分 JSON
var ErrInvalidScoreResponse = errors.New("invalid score response")

const scoringSystemPrompt = `You are an AI-powered resume scorer. Given a structured resume, evaluate it based on the following parameters and provide scores ONLY. Scores should range from 0 to 10, with 10 being the highest. The scoring should be fair but slightly lenient, allowing minor improvements to positively impact the score. Consider industry standards while ensuring candidates receive constructive scoring.

Scoring Parameters:
Education Score: educational qualifications, their relevance and prestige.
Work Experience Score: years of experience, role progression and relevancy.
Skills Score: the skills section judged on quantity, quality and relevance.
Projects & Certifications Score: listed projects and certifications judged on impact.
Achievements & Awards Score: professional recognitions and awards.
Communication & Formatting Score: readability, grammar and overall presentation.
Overall Score: a weighted average of all factors.

When evaluating projects give equal importance to quality and quantity. Many low quality projects should score low, a few high quality projects should score high.
If the candidate is a fresher do not judge the experience score harshly.

Response Format (JSON Only, No Extra Text):
{
    "Education Score": 7.5,
    "Work Experience Score": 6.5,
    "Skills Score": 9.0,
    "Projects & Certifications Score": 8.0,
    "Achievements & Awards Score": 5.5,
    "Communication & Formatting Score": 8.0,
    "Overall Score": 7.5
}
Ensure fairness, but allow slight score boosts where applicable. Do not include any explanations or extra text, return only JSON.`

var scoreKeys = []string{
	"Education Score",
	"Work Experience Score",
	"Skills Score",
	"Projects & Certifications Score",
	"Achievements & Awards Score",
	"Communication & Formatting Score",
	"Overall Score",
}

// ResumeScorer 调用 LLM 对结构化简历打分
type ResumeScorer struct {
	llm         model.BaseChatModel
	temperature float32
	timeout     time.Duration
}

// NewResumeScorer 创建评分器
func NewResumeScorer(llm model.BaseChatModel, cfg config.ScoringConfig) *ResumeScorer {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ResumeScorer{llm: llm, temperature: cfg.Temperature, timeout: timeout}
}

// Score 失败时返回错误，调用方把分数置空
func (s *ResumeScorer) Score(ctx context.Context, record *types.ResumeRecord) (*types.ResumeScore, error) {
	if s == nil || s.llm == nil {
		return nil, errors.New("scorer not configured")
	}
	if record == nil {
		return nil, errors.New("nil resume record")
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("序列化简历记录失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	messages := []*schema.Message{
		schema.SystemMessage(scoringSystemPrompt),
		schema.UserMessage("parsed resume: " + string(payload)),
	}
	start := time.Now()
	resp, err := s.llm.Generate(ctx, messages, model.WithTemperature(s.temperature), model.WithMaxTokens(2048))
	if err != nil {
		return nil, fmt.Errorf("LLM评分调用失败: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty message", ErrInvalidScoreResponse)
	}

	score, err := ParseScoreResponse(resp.Content)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("raw", truncateForLog(resp.Content, 200)).Msg("评分结果解析失败")
		return nil, err
	}
	logger.Ctx(ctx).Debug().Float64("overall", score.Overall).Dur("elapsed", time.Since(start)).Msg("简历评分完成")
	return score, nil
}

// ParseScoreResponse 容忍 markdown 代码块和前后多余文字，数值可以是字符串；
// 缺失的键记 0，结果截到 [0,10]
func ParseScoreResponse(content string) (*types.ResumeScore, error) {
	obj := extractJSONObject(content)
	if obj == "" {
		return nil, fmt.Errorf("%w: no json object", ErrInvalidScoreResponse)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScoreResponse, err)
	}

	values := make([]float64, len(scoreKeys))
	found := 0
	for i, key := range scoreKeys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		f, ok := toScore(v)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidScoreResponse, key)
		}
		values[i] = f
		found++
	}
	if found == 0 {
		return nil, fmt.Errorf("%w: no score keys", ErrInvalidScoreResponse)
	}
	return &types.ResumeScore{
		Education:               values[0],
		WorkExperience:          values[1],
		Skills:                  values[2],
		ProjectsCertifications:  values[3],
		AchievementsAwards:      values[4],
		CommunicationFormatting: values[5],
		Overall:                 values[6],
	}, nil
}

func extractJSONObject(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}

func toScore(v interface{}) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return math.Max(0, math.Min(10, f)), true
}

func truncateForLog(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
