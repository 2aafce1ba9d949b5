package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Bulletdev/Mindfulness/internal/db"
	"gorm.io/gorm"
)

// 主情感类别
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentMixed    = "mixed"
)

// ErrSentimentAPIKeyMissing 在选择云端分析但未配置密钥时返回
var ErrSentimentAPIKeyMissing = errors.New("sentiment api key not configured")

// SentimentScoreSet 是一次分析的四个非负分数，不要求和为 1
type SentimentScoreSet struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
	Mixed    float64 `json:"mixed"`
}

// SentimentResult 是情感分析提供方返回的统一结果形状
type SentimentResult struct {
	PrimarySentiment string             `json:"primary_sentiment"`
	Scores           SentimentScoreSet  `json:"sentiment_scores"`
	Entities         []db.SentimentItem `json:"entities"`
	KeyPhrases       []db.SentimentItem `json:"key_phrases"`
}

// SentimentProvider 抽象外部情感分析能力。
// 返回 (nil, nil) 表示无可分析内容；错误表示上游不可用，调用方应降级而非失败。
type SentimentProvider interface {
	Analyze(ctx context.Context, text, language string) (*SentimentResult, error)
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// cloudSentimentClient 调用外部情感分析 HTTP API
type cloudSentimentClient struct {
	http    httpDoer
	baseURL string
	apiKey  string
}

type sentimentAPIRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type sentimentAPIResponse struct {
	Sentiment string            `json:"sentiment"`
	Scores    SentimentScoreSet `json:"scores"`
	Entities  []struct {
		Text  string  `json:"text"`
		Score float64 `json:"score"`
	} `json:"entities"`
	KeyPhrases []struct {
		Text  string  `json:"text"`
		Score float64 `json:"score"`
	} `json:"key_phrases"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewCloudSentimentProvider 构造云端情感分析客户端
func NewCloudSentimentProvider(baseURL, apiKey string) SentimentProvider {
	return &cloudSentimentClient{
		http:    &http.Client{Timeout: 20 * time.Second},
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
	}
}

// SetHTTPClient 覆盖默认 HTTP 客户端，主要用于测试
func (c *cloudSentimentClient) SetHTTPClient(client httpDoer) {
	if client == nil {
		c.http = &http.Client{Timeout: 20 * time.Second}
		return
	}
	c.http = client
}

func (c *cloudSentimentClient) Analyze(ctx context.Context, text, language string) (*SentimentResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if c.apiKey == "" {
		return nil, ErrSentimentAPIKeyMissing
	}

	body, err := json.Marshal(sentimentAPIRequest{Text: text, Language: language})
	if err != nil {
		return nil, fmt.Errorf("构造请求失败: %w", err)
	}

	endpoint := c.baseURL + "/v1/sentiment"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建情感分析请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "mindfulness-sentiment/1.0")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("请求情感分析接口失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("读取情感分析响应失败: %w", err)
	}

	var payload sentimentAPIResponse
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, fmt.Errorf("解析情感分析响应失败: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		errMsg := strings.TrimSpace(payload.Error.Message)
		if errMsg == "" {
			errMsg = resp.Status
		}
		return nil, fmt.Errorf("情感分析接口返回错误：%s", errMsg)
	}

	result := &SentimentResult{
		PrimarySentiment: strings.ToLower(strings.TrimSpace(payload.Sentiment)),
		Scores:           payload.Scores,
	}
	for _, entity := range payload.Entities {
		result.Entities = append(result.Entities, db.SentimentItem{Text: entity.Text, Score: entity.Score})
	}
	for _, phrase := range payload.KeyPhrases {
		result.KeyPhrases = append(result.KeyPhrases, db.SentimentItem{Text: phrase.Text, Score: phrase.Score})
	}

	return result, nil
}

// lexiconAnalyzer 是本地词表回退实现，能力弱于云端但离线可用
type lexiconAnalyzer struct{}

// NewLexiconSentimentProvider 构造本地词表分析器
func NewLexiconSentimentProvider() SentimentProvider {
	return lexiconAnalyzer{}
}

// 情感阈值：|得分| 低于该值视为中性
const lexiconNeutralThreshold = 0.1

var sentimentLexicons = map[string]struct {
	positive []string
	negative []string
}{
	"zh": {
		positive: []string{"开心", "高兴", "满足", "平静", "感恩", "喜欢", "顺利", "放松", "充实", "期待"},
		negative: []string{"难过", "焦虑", "疲惫", "烦躁", "失望", "压力", "孤独", "生气", "沮丧", "害怕"},
	},
	"en": {
		positive: []string{"happy", "glad", "grateful", "calm", "peaceful", "good", "great", "relaxed", "hopeful", "proud"},
		negative: []string{"sad", "anxious", "tired", "angry", "stressed", "lonely", "upset", "afraid", "worried", "frustrated"},
	},
}

func (lexiconAnalyzer) Analyze(_ context.Context, text, language string) (*SentimentResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	lexicon, ok := sentimentLexicons[language]
	if !ok {
		lexicon = sentimentLexicons["zh"]
	}

	lowered := strings.ToLower(text)
	positiveHits := countOccurrences(lowered, lexicon.positive)
	negativeHits := countOccurrences(lowered, lexicon.negative)

	score := 0.0
	if positiveHits+negativeHits > 0 {
		score = float64(positiveHits-negativeHits) / float64(positiveHits+negativeHits)
	}

	result := &SentimentResult{}
	switch {
	case score > lexiconNeutralThreshold:
		result.PrimarySentiment = SentimentPositive
		result.Scores = SentimentScoreSet{Positive: score, Neutral: 1 - score}
	case score < -lexiconNeutralThreshold:
		result.PrimarySentiment = SentimentNegative
		result.Scores = SentimentScoreSet{Negative: -score, Neutral: 1 + score}
	default:
		result.PrimarySentiment = SentimentNeutral
		result.Scores = SentimentScoreSet{Neutral: 1}
	}

	return result, nil
}

func countOccurrences(text string, words []string) int {
	hits := 0
	for _, word := range words {
		hits += strings.Count(text, word)
	}
	return hits
}

// SentimentService 负责把日记文本交给提供方分析并持久化结果。
// 提供方失败只意味着"该日记没有情感数据"，不会向上传播为日记写入失败。
type SentimentService struct {
	db       *gorm.DB
	provider SentimentProvider
	language string
}

// NewSentimentService 构造 SentimentService
func NewSentimentService(gdb *gorm.DB, provider SentimentProvider, language string) *SentimentService {
	language = strings.TrimSpace(language)
	if language == "" {
		language = "zh"
	}
	return &SentimentService{db: gdb, provider: provider, language: language}
}

// AnalyzeEntry 分析日记并替换旧的分析结果。
// 文本为空或提供方返回空结果时仅清除旧数据。
func (s *SentimentService) AnalyzeEntry(ctx context.Context, entry *db.JournalEntry) error {
	if s.provider == nil {
		return nil
	}

	plaintext := MarkdownPlaintext(entry.Content)

	result, err := s.provider.Analyze(ctx, plaintext, s.language)
	if err != nil {
		return fmt.Errorf("analyze entry %d: %w", entry.ID, err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().
			Where("journal_entry_id = ?", entry.ID).
			Delete(&db.SentimentAnalysis{}).Error; err != nil {
			return err
		}

		if result == nil {
			return nil
		}

		analysis := db.SentimentAnalysis{
			JournalEntryID:   entry.ID,
			Language:         s.language,
			PrimarySentiment: result.PrimarySentiment,
			PositiveScore:    result.Scores.Positive,
			NegativeScore:    result.Scores.Negative,
			NeutralScore:     result.Scores.Neutral,
			MixedScore:       result.Scores.Mixed,
			Entities:         result.Entities,
			KeyPhrases:       result.KeyPhrases,
		}
		return tx.Create(&analysis).Error
	})
}
