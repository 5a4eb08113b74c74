package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ENV_FILE = ".env"
const CONFIG_FILE = "config.yaml"

type AppConfig struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Mongo     MongoConfig     `yaml:"mongo"`
	LLM       LLMConfig       `yaml:"llm"`
	TextQuota TextQuotaConfig `yaml:"text_quota"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Selection SelectionConfig `yaml:"selection"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Browser   BrowserConfig   `yaml:"browser"`
	API       APIConfig       `yaml:"api"`
	Kafka     KafkaConfig     `yaml:"kafka"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type MongoConfig struct {
	// URI 는 비어 있으면 MONGO_URI 환경변수를 사용한다.
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type LLMConfig struct {
	Provider       string `yaml:"provider"`
	ModelName      string `yaml:"model_name"`
	EmbeddingModel string `yaml:"embedding_model"`
}

// TextQuotaConfig 는 Text Service 호출에 대한 속도/일일 한도를 정의한다.
// 0 이하면 제한 없음으로 간주한다.
type TextQuotaConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	RequestsPerDay    int `yaml:"requests_per_day"`
}

type IngestConfig struct {
	MaxPosts int `yaml:"max_posts"`
	// EnrichConcurrency 는 한 포스트의 파생 호출(요약/임베딩/점수/토픽/토큰)을
	// 동시에 몇 개까지 보낼지 정한다. 1 이면 순차 처리.
	EnrichConcurrency int `yaml:"enrich_concurrency"`
}

const (
	SelectionPolicyScore          = "score"
	SelectionPolicyAuthorPriority = "author_priority"
)

type SelectionConfig struct {
	Policy            string        `yaml:"policy"`
	MinScore          int           `yaml:"min_score"`
	Window            time.Duration `yaml:"window"`
	MaxReplies        int           `yaml:"max_replies"`
	MaxSummaryPosts   int           `yaml:"max_summary_posts"`
	SummaryHighlights int           `yaml:"summary_highlights"`
	CandidatePool     int           `yaml:"candidate_pool"`
	PriorityAuthors   []string      `yaml:"priority_authors"`
	QuestionKeywords  []string      `yaml:"question_keywords"`
}

type DispatchConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	Backoff         time.Duration `yaml:"backoff"`
	MaxBackoff      time.Duration `yaml:"max_backoff"`
	ActionDelay     time.Duration `yaml:"action_delay"`
	ReplyMaxChars   int           `yaml:"reply_max_chars"`
	SummaryMaxChars int           `yaml:"summary_max_chars"`
}

type ScheduleConfig struct {
	LearnInterval time.Duration `yaml:"learn_interval"`
	ReplyInterval time.Duration `yaml:"reply_interval"`
	PostInterval  time.Duration `yaml:"post_interval"`
	CycleTimeout  time.Duration `yaml:"cycle_timeout"`
	RunOnStart    bool          `yaml:"run_on_start"`
}

type BrowserConfig struct {
	ChromePath     string        `yaml:"chrome_path"`
	Headless       bool          `yaml:"headless"`
	TimelineURL    string        `yaml:"timeline_url"`
	StatusURL      string        `yaml:"status_url"`
	ComposeURL     string        `yaml:"compose_url"`
	SelectorWait   time.Duration `yaml:"selector_wait"`
	SettleDelay    time.Duration `yaml:"settle_delay"`
	ScrollRounds   int           `yaml:"scroll_rounds"`
	UserDataDir    string        `yaml:"user_data_dir"`
	NavigationWait time.Duration `yaml:"navigation_wait"`
}

type APIConfig struct {
	Addr string `yaml:"addr"`
}

type KafkaConfig struct {
	// Topic 이 비어 있거나 KAFKA_BOOTSTRAP_SERVERS 가 없으면 이벤트 발행을 하지 않는다.
	Topic string `yaml:"topic"`
}

var config *AppConfig

func InitApp() {
	// load environment variables
	godotenv.Load(filepath.Join(GetBasePath(), ENV_FILE))

	// load configuration file
	data, err := os.ReadFile(filepath.Join(GetBasePath(), CONFIG_FILE))
	if err != nil {
		panic(err)
	}

	c, err := Parse(data)
	if err != nil {
		panic(err)
	}
	config = c
}

// Parse 는 yaml 바이트를 읽어 기본값을 채우고 검증한 설정을 반환한다.
func Parse(data []byte) (*AppConfig, error) {
	var c AppConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate fills defaults for zero values and rejects settings the pipeline cannot run with.
func (c *AppConfig) Validate() error {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "timeline_agent"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "google"
	}
	if c.LLM.ModelName == "" {
		c.LLM.ModelName = "gemini-2.5-flash"
	}
	if c.LLM.EmbeddingModel == "" {
		c.LLM.EmbeddingModel = "text-embedding-004"
	}

	if c.Ingest.MaxPosts <= 0 {
		c.Ingest.MaxPosts = 50
	}
	if c.Ingest.EnrichConcurrency <= 0 {
		c.Ingest.EnrichConcurrency = 1
	}

	s := &c.Selection
	s.Policy = strings.ToLower(strings.TrimSpace(s.Policy))
	switch s.Policy {
	case "":
		s.Policy = SelectionPolicyScore
	case SelectionPolicyScore, SelectionPolicyAuthorPriority:
	default:
		return fmt.Errorf("unknown selection policy %q", s.Policy)
	}
	if s.MinScore == 0 {
		s.MinScore = 50
	}
	if s.MinScore < 0 || s.MinScore > 100 {
		return fmt.Errorf("selection.min_score must be within [0,100], got %d", s.MinScore)
	}
	if s.Window <= 0 {
		s.Window = 24 * time.Hour
	}
	if s.MaxReplies <= 0 {
		s.MaxReplies = 10
	}
	if s.MaxSummaryPosts <= 0 {
		s.MaxSummaryPosts = 5
	}
	if s.SummaryHighlights < 0 {
		s.SummaryHighlights = 0
	}
	if s.CandidatePool <= 0 {
		s.CandidatePool = 200
	}
	if len(s.QuestionKeywords) == 0 {
		s.QuestionKeywords = []string{"what", "why", "how", "when", "where", "who", "which", "anyone", "thoughts"}
	}

	d := &c.Dispatch
	if d.MaxAttempts <= 0 {
		d.MaxAttempts = 3
	}
	if d.Backoff <= 0 {
		d.Backoff = 3 * time.Second
	}
	if d.MaxBackoff < d.Backoff {
		d.MaxBackoff = 4 * d.Backoff
	}
	if d.ActionDelay <= 0 {
		d.ActionDelay = 5 * time.Second
	}
	if d.ReplyMaxChars <= 0 {
		d.ReplyMaxChars = 100
	}
	if d.SummaryMaxChars <= 0 {
		d.SummaryMaxChars = 200
	}

	sc := &c.Schedule
	if sc.LearnInterval <= 0 {
		sc.LearnInterval = 15 * time.Minute
	}
	if sc.ReplyInterval <= 0 {
		sc.ReplyInterval = 30 * time.Minute
	}
	if sc.PostInterval <= 0 {
		sc.PostInterval = 120 * time.Minute
	}
	if sc.CycleTimeout <= 0 {
		sc.CycleTimeout = 10 * time.Minute
	}

	b := &c.Browser
	if b.TimelineURL == "" {
		b.TimelineURL = "https://x.com/home"
	}
	if b.StatusURL == "" {
		b.StatusURL = "https://x.com/i/status/%s"
	}
	if b.ComposeURL == "" {
		b.ComposeURL = "https://x.com/compose/post"
	}
	if b.SelectorWait <= 0 {
		b.SelectorWait = 5 * time.Second
	}
	if b.SettleDelay <= 0 {
		b.SettleDelay = 2 * time.Second
	}
	if b.ScrollRounds <= 0 {
		b.ScrollRounds = 3
	}
	if b.NavigationWait <= 0 {
		b.NavigationWait = 30 * time.Second
	}

	if c.API.Addr == "" {
		c.API.Addr = ":8080"
	}
	return nil
}

func GetConfig() AppConfig {
	if config == nil {
		InitApp()
	}

	return *config
}

func GetBasePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		cfgPath := filepath.Join(dir, CONFIG_FILE)
		if info, err := os.Stat(cfgPath); err == nil && !info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
