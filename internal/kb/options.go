// Package kb provides the knowledge base ingestion service application.
package kb

import (
	"fmt"
	"time"

	"github.com/kart-io/sentinel-kb/internal/kb/biz"
	"github.com/kart-io/sentinel-kb/pkg/component/mysql"
	appopts "github.com/kart-io/sentinel-kb/pkg/options/app"
	authzopts "github.com/kart-io/sentinel-kb/pkg/options/authz"
	extractoropts "github.com/kart-io/sentinel-kb/pkg/options/extractor"
	logopts "github.com/kart-io/sentinel-kb/pkg/options/logger"
	milvusopts "github.com/kart-io/sentinel-kb/pkg/options/milvus"
	ollamaopts "github.com/kart-io/sentinel-kb/pkg/options/ollama"
	redisopts "github.com/kart-io/sentinel-kb/pkg/options/redis"
	serveropts "github.com/kart-io/sentinel-kb/pkg/options/server"
	jwtopts "github.com/kart-io/sentinel-kb/pkg/security/auth/jwt"
	"github.com/spf13/pflag"
)

// Staging backends for draft storage.
const (
	StagingMemory = "memory"
	StagingRedis  = "redis"
)

// IngestOptions tunes draft staging and the ingestion pipeline.
type IngestOptions struct {
	// StagingBackend selects where drafts live: memory or redis.
	StagingBackend string `json:"staging-backend" mapstructure:"staging-backend"`

	// DraftTTL is how long an untouched draft survives before expiring.
	DraftTTL time.Duration `json:"draft-ttl" mapstructure:"draft-ttl"`

	// SweepInterval is how often parked deletions are retried.
	SweepInterval time.Duration `json:"sweep-interval" mapstructure:"sweep-interval"`

	// ReadyPolicy decides when a knowledge base flips to ready: any or all.
	ReadyPolicy string `json:"ready-policy" mapstructure:"ready-policy"`

	// MaxRetries is the per-stage attempt budget for transient errors,
	// counting the first attempt. Must be at least 1.
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// RetryBackoff is the initial stage retry backoff, doubled per attempt.
	RetryBackoff time.Duration `json:"retry-backoff" mapstructure:"retry-backoff"`

	// Workers caps concurrent document processing.
	Workers int `json:"workers" mapstructure:"workers"`

	// EmbedCacheTTL bounds how long computed embeddings stay cached in
	// redis. Only effective with the redis staging backend.
	EmbedCacheTTL time.Duration `json:"embed-cache-ttl" mapstructure:"embed-cache-ttl"`

	// Prices maps embedding model names to price per thousand tokens, used
	// for preview cost estimates. Config file only.
	Prices map[string]float64 `json:"prices" mapstructure:"prices"`
}

// NewIngestOptions creates IngestOptions with defaults.
func NewIngestOptions() *IngestOptions {
	return &IngestOptions{
		StagingBackend: StagingMemory,
		DraftTTL:       24 * time.Hour,
		SweepInterval:  time.Minute,
		ReadyPolicy:    biz.ReadyPolicyAny,
		MaxRetries:     3,
		RetryBackoff:   500 * time.Millisecond,
		Workers:        8,
		EmbedCacheTTL:  biz.DefaultEmbedCacheTTL,
	}
}

// AddFlags adds ingestion flags to the flagset.
func (o *IngestOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.StagingBackend, "ingest.staging-backend", o.StagingBackend, "Draft staging backend (memory, redis)")
	fs.DurationVar(&o.DraftTTL, "ingest.draft-ttl", o.DraftTTL, "Draft time-to-live in the staging store")
	fs.DurationVar(&o.SweepInterval, "ingest.sweep-interval", o.SweepInterval, "Interval between parked deletion retries")
	fs.StringVar(&o.ReadyPolicy, "ingest.ready-policy", o.ReadyPolicy, "Knowledge base ready policy (any, all)")
	fs.IntVar(&o.MaxRetries, "ingest.max-retries", o.MaxRetries, "Per-stage attempt budget for transient errors, minimum 1")
	fs.DurationVar(&o.RetryBackoff, "ingest.retry-backoff", o.RetryBackoff, "Initial stage retry backoff")
	fs.IntVar(&o.Workers, "ingest.workers", o.Workers, "Concurrent document processing workers")
	fs.DurationVar(&o.EmbedCacheTTL, "ingest.embed-cache-ttl", o.EmbedCacheTTL, "TTL for cached embedding vectors (redis backend only)")
}

// Validate validates the ingestion options.
func (o *IngestOptions) Validate() error {
	switch o.StagingBackend {
	case StagingMemory, StagingRedis:
	default:
		return fmt.Errorf("ingest.staging-backend must be memory or redis")
	}
	switch o.ReadyPolicy {
	case biz.ReadyPolicyAny, biz.ReadyPolicyAll:
	default:
		return fmt.Errorf("ingest.ready-policy must be any or all")
	}
	if o.DraftTTL <= 0 {
		return fmt.Errorf("ingest.draft-ttl must be positive")
	}
	if o.SweepInterval <= 0 {
		return fmt.Errorf("ingest.sweep-interval must be positive")
	}
	if o.MaxRetries < 1 {
		return fmt.Errorf("ingest.max-retries must be at least 1")
	}
	if o.Workers <= 0 {
		return fmt.Errorf("ingest.workers must be positive")
	}
	return nil
}

// Options contains all knowledge base service options.
type Options struct {
	// Server contains server configuration (HTTP/gRPC).
	Server *serveropts.Options `json:"server" mapstructure:"server"`

	// Log contains logger configuration.
	Log *logopts.Options `json:"log" mapstructure:"log"`

	// MySQL contains the relational store configuration.
	MySQL *mysql.Options `json:"mysql" mapstructure:"mysql"`

	// Redis contains the draft staging store configuration. Only used when
	// ingest.staging-backend is redis.
	Redis *redisopts.Options `json:"redis" mapstructure:"redis"`

	// Milvus contains the vector index configuration.
	Milvus *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// Ollama contains the embedding provider configuration.
	Ollama *ollamaopts.Options `json:"ollama" mapstructure:"ollama"`

	// Extractor contains the content extraction service configuration.
	Extractor *extractoropts.Options `json:"extractor" mapstructure:"extractor"`

	// Ingest contains draft staging and pipeline tuning.
	Ingest *IngestOptions `json:"ingest" mapstructure:"ingest"`

	// JWT contains token authentication configuration. Disabled by default;
	// the service usually runs behind the platform gateway.
	JWT *jwtopts.Options `json:"jwt" mapstructure:"jwt"`

	// Authz contains authorization engine configuration. Only consulted
	// when token authentication is enabled.
	Authz *authzopts.Options `json:"authz" mapstructure:"authz"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	serverOpts := serveropts.NewOptions()
	serverOpts.HTTP.Addr = ":8083"
	serverOpts.GRPC.Addr = ":8103"

	jwtOpts := jwtopts.NewOptions()
	jwtOpts.DisableAuth = true

	return &Options{
		Server:    serverOpts,
		Log:       logopts.NewOptions(),
		MySQL:     mysql.NewOptions(),
		Redis:     redisopts.NewOptions(),
		Milvus:    milvusopts.NewOptions(),
		Ollama:    ollamaopts.NewOptions(),
		Extractor: extractoropts.NewOptions(),
		Ingest:    NewIngestOptions(),
		JWT:       jwtOpts,
		Authz:     authzopts.NewOptions(),
	}
}

// Flags returns the flag sections for the application bootstrapper.
func (o *Options) Flags() (fss appopts.NamedFlagSets) {
	o.Server.AddFlags(fss.FlagSet("server"))
	o.Log.AddFlags(fss.FlagSet("log"))
	o.MySQL.AddFlags(fss.FlagSet("mysql"), "")
	o.Redis.AddFlags(fss.FlagSet("redis"))
	o.Milvus.AddFlags(fss.FlagSet("milvus"))
	o.Ollama.AddFlags(fss.FlagSet("ollama"), "ollama.")
	o.Extractor.AddFlags(fss.FlagSet("extractor"), "extractor.")
	o.Ingest.AddFlags(fss.FlagSet("ingest"))
	o.JWT.AddFlags(fss.FlagSet("jwt"))
	o.Authz.AddFlags(fss.FlagSet("authz"))
	return fss
}

// Validate validates the options.
func (o *Options) Validate() error {
	if err := o.Log.Validate(); err != nil {
		return err
	}
	if errs := o.Server.Validate(); len(errs) > 0 {
		return errs[0]
	}
	if err := o.MySQL.Validate(); err != nil {
		return err
	}
	if o.Ingest.StagingBackend == StagingRedis {
		if err := o.Redis.Validate(); err != nil {
			return err
		}
	}
	if errs := o.Milvus.Validate(); len(errs) > 0 {
		return errs[0]
	}
	if err := o.Ollama.Validate(); err != nil {
		return err
	}
	if err := o.Extractor.Validate(); err != nil {
		return err
	}
	if err := o.JWT.Validate(); err != nil {
		return err
	}
	if !o.JWT.DisableAuth {
		if err := o.Authz.Validate(); err != nil {
			return err
		}
	}
	return o.Ingest.Validate()
}

// Complete completes the options with defaults.
func (o *Options) Complete() error {
	if err := o.Server.Complete(); err != nil {
		return err
	}
	return o.MySQL.Complete()
}

// PipelineConfig converts the ingestion tuning into pipeline configuration.
func (o *Options) PipelineConfig() *biz.PipelineConfig {
	return &biz.PipelineConfig{
		MaxRetries:   o.Ingest.MaxRetries,
		RetryBackoff: o.Ingest.RetryBackoff,
		ReadyPolicy:  o.Ingest.ReadyPolicy,
	}
}
