package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	rediscache "github.com/yungbote/coursebridge-backend/internal/platform/redis"
	"github.com/yungbote/coursebridge-backend/internal/data/db"
	httpMW "github.com/yungbote/coursebridge-backend/internal/http/middleware"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/semantic"
	"github.com/yungbote/coursebridge-backend/internal/observability"
	"github.com/yungbote/coursebridge-backend/internal/platform/envutil"
	"github.com/yungbote/coursebridge-backend/internal/platform/neo4jdb"
	"github.com/yungbote/coursebridge-backend/internal/platform/openai"
)

const serviceName = "coursebridge"

type Config struct {
	Addr           string `validate:"required"`
	StoreBackend   string `validate:"oneof=sql neo4j"`
	VectorProvider string `validate:"oneof=qdrant memory none"`
	AliasesPath    string `validate:"omitempty,file"`
	CORSOrigins    []string
	TitleIndexTTL  time.Duration
	AutoMigrate    bool
	IndexOnStartup bool

	Neo4jURI     string `validate:"required_if=StoreBackend neo4j"`
	OpenAIAPIKey string `validate:"required_if=VectorProvider qdrant"`

	Auth     httpMW.IdentityConfig
	DB       db.Config
	Engine   advising.Config
	Semantic semantic.Config
	OpenAI   openai.Config
	Redis    rediscache.Config
	Neo4j    neo4jdb.Config
	OTel     observability.OtelConfig
}

// ConfigError names the first setting that failed validation.
type ConfigError struct {
	Field string
	Rule  string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "invalid config"
	}
	if e.Err != nil {
		return fmt.Sprintf("invalid config %s (%s): %v", e.Field, e.Rule, e.Err)
	}
	return fmt.Sprintf("invalid config %s=%q fails %q", e.Field, e.Value, e.Rule)
}

func (e *ConfigError) Unwrap() error { return e.Err }

var validate = validator.New()

func LoadConfig() (Config, error) {
	engine := advising.ConfigFromEnv()
	sem := semantic.ConfigFromEnv()
	oa := openai.ConfigFromEnv()
	neo := neo4jdb.ConfigFromEnv()

	cfg := Config{
		Addr:           envutil.String("HTTP_ADDR", ":8080"),
		StoreBackend:   strings.ToLower(envutil.String("STORE_BACKEND", "sql")),
		VectorProvider: strings.ToLower(envutil.String("VECTOR_PROVIDER", "memory")),
		AliasesPath:    envutil.String("ALIASES_PATH", ""),
		CORSOrigins:    splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),
		TitleIndexTTL:  envutil.Duration("TITLE_INDEX_TTL", 5*time.Minute),
		AutoMigrate:    envutil.Bool("DB_AUTO_MIGRATE", true),
		IndexOnStartup: envutil.Bool("INDEX_ON_STARTUP", false),

		Neo4jURI:     neo.URI,
		OpenAIAPIKey: oa.APIKey,

		Auth: httpMW.IdentityConfig{
			Secret:   envutil.String("AUTH_JWT_SECRET", ""),
			Issuer:   envutil.String("AUTH_JWT_ISSUER", ""),
			Required: envutil.Bool("AUTH_REQUIRED", false),
		},
		DB:       db.ConfigFromEnv(),
		Engine:   engine,
		Semantic: sem,
		OpenAI:   oa,
		Redis:    rediscache.ConfigFromEnv(),
		Neo4j:    neo,
		OTel:     observability.OtelConfigFromEnv(serviceName),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Auth.Required && c.Auth.Secret == "" {
		return &ConfigError{Field: "AuthSecret", Rule: "required_with=AuthRequired"}
	}
	if c.Engine.MaxEntries < 1 || c.Engine.MaxEntries > 100 {
		return &ConfigError{Field: "BundleMaxEntries", Rule: "gte=1,lte=100", Value: fmt.Sprint(c.Engine.MaxEntries)}
	}
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		return &ConfigError{Field: fe.Field(), Rule: rule, Value: fmt.Sprint(fe.Value())}
	}
	return &ConfigError{Field: "config", Rule: "validate", Err: err}
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
