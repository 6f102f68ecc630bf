package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Service struct {
	URL     string        `yaml:"url" mapstructure:"url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}
type Services struct {
	ASR           Service `yaml:"asr" mapstructure:"asr"`
	Embedding     Service `yaml:"embedding" mapstructure:"embedding"`
	Sentiment     Service `yaml:"sentiment" mapstructure:"sentiment"`
	Visualization Service `yaml:"visualization" mapstructure:"visualization"`
	Clone         Service `yaml:"clone" mapstructure:"clone"`
}
type Audio struct {
	SampleRate      int     `yaml:"sample_rate" mapstructure:"sample_rate"`
	PauseThreshold  float64 `yaml:"pause_threshold" mapstructure:"pause_threshold"` // seconds
	KeepSilence     float64 `yaml:"keep_silence" mapstructure:"keep_silence"`       // seconds
	SilenceOffsetDB float64 `yaml:"silence_offset_db" mapstructure:"silence_offset_db"`
	HeadroomDB      float64 `yaml:"headroom_db" mapstructure:"headroom_db"`
}
type Prosody struct {
	PitchFloor       float64 `yaml:"pitch_floor" mapstructure:"pitch_floor"`
	PitchCeiling     float64 `yaml:"pitch_ceiling" mapstructure:"pitch_ceiling"`
	TimeStep         float64 `yaml:"time_step" mapstructure:"time_step"`
	VoicingThreshold float64 `yaml:"voicing_threshold" mapstructure:"voicing_threshold"`
	SilenceThreshold float64 `yaml:"silence_threshold" mapstructure:"silence_threshold"`
	OctaveCost       float64 `yaml:"octave_cost" mapstructure:"octave_cost"`
}
type Transcriber struct {
	Backend  string `yaml:"backend" mapstructure:"backend"` // service | openai
	Model    string `yaml:"model" mapstructure:"model"`
	APIKey   string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	Language string `yaml:"language" mapstructure:"language"`
}
type Coach struct {
	Strategy    string        `yaml:"strategy" mapstructure:"strategy"` // openai | gemini | local | rest | ollama
	Model       string        `yaml:"model" mapstructure:"model"`
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	URL         string        `yaml:"url" mapstructure:"url"`
	AuthToken   string        `yaml:"auth_token" mapstructure:"auth_token"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}
type Personas struct {
	Store    string `yaml:"store" mapstructure:"store"` // json | badger
	Path     string `yaml:"path" mapstructure:"path"`
	AudioDir string `yaml:"audio_dir" mapstructure:"audio_dir"`
}
type Storage struct {
	Backend   string `yaml:"backend" mapstructure:"backend"` // local | s3
	Root      string `yaml:"root" mapstructure:"root"`
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	Prefix    string `yaml:"prefix" mapstructure:"prefix"`
	Region    string `yaml:"region" mapstructure:"region"`
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
}
type Paths struct {
	Data    string `yaml:"data" mapstructure:"data"`
	Reports string `yaml:"reports" mapstructure:"reports"`
	Outputs string `yaml:"outputs" mapstructure:"outputs"`
}
type Root struct {
	Pipeline struct {
		Name      string `yaml:"name" mapstructure:"name"`
		Version   string `yaml:"version" mapstructure:"version"`
		LogLvl    string `yaml:"log_level" mapstructure:"log_level"`
		LogFormat string `yaml:"log_format" mapstructure:"log_format"`
	} `yaml:"pipeline" mapstructure:"pipeline"`
	Audio       Audio       `yaml:"audio" mapstructure:"audio"`
	Prosody     Prosody     `yaml:"prosody" mapstructure:"prosody"`
	Services    Services    `yaml:"services" mapstructure:"services"`
	Transcriber Transcriber `yaml:"transcriber" mapstructure:"transcriber"`
	Coach       Coach       `yaml:"coach" mapstructure:"coach"`
	Personas    Personas    `yaml:"personas" mapstructure:"personas"`
	Storage     Storage     `yaml:"storage" mapstructure:"storage"`
	Paths       Paths       `yaml:"paths" mapstructure:"paths"`
}

// EnvPrefix is prepended to every environment override, e.g.
// SPEAKIDOL_COACH_API_KEY overrides coach.api_key.
const EnvPrefix = "SPEAKIDOL"

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.name", "speakidol")
	v.SetDefault("pipeline.version", "0.1.0")
	v.SetDefault("pipeline.log_level", "info")
	v.SetDefault("pipeline.log_format", "text")

	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.pause_threshold", 0.25)
	v.SetDefault("audio.keep_silence", 0.1)
	v.SetDefault("audio.silence_offset_db", 16.0)
	v.SetDefault("audio.headroom_db", 0.1)

	v.SetDefault("prosody.pitch_floor", 75.0)
	v.SetDefault("prosody.pitch_ceiling", 500.0)
	v.SetDefault("prosody.time_step", 0.01)
	v.SetDefault("prosody.voicing_threshold", 0.45)
	v.SetDefault("prosody.silence_threshold", 0.03)
	v.SetDefault("prosody.octave_cost", 0.01)

	for _, s := range []string{"asr", "embedding", "sentiment", "visualization", "clone"} {
		v.SetDefault("services."+s+".url", "")
		v.SetDefault("services."+s+".timeout", 60*time.Second)
	}

	v.SetDefault("transcriber.backend", "service")
	v.SetDefault("transcriber.model", "whisper-1")
	v.SetDefault("transcriber.api_key", "")
	v.SetDefault("transcriber.base_url", "")
	v.SetDefault("transcriber.language", "en")

	v.SetDefault("coach.strategy", "openai")
	v.SetDefault("coach.model", "") // per-strategy default
	v.SetDefault("coach.api_key", "")
	v.SetDefault("coach.base_url", "")
	v.SetDefault("coach.url", "")
	v.SetDefault("coach.auth_token", "")
	v.SetDefault("coach.temperature", 0.3)
	v.SetDefault("coach.max_tokens", 120)
	v.SetDefault("coach.timeout", 30*time.Second)

	v.SetDefault("personas.store", "json")
	v.SetDefault("personas.path", filepath.Join("data", "embeddings", "personas_meta.json"))
	v.SetDefault("personas.audio_dir", filepath.Join("data", "personas"))

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.root", filepath.Join("data", "files"))
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")

	v.SetDefault("paths.data", "data")
	v.SetDefault("paths.reports", filepath.Join("data", "reports"))
	v.SetDefault("paths.outputs", filepath.Join("data", "outputs"))
}

// Load reads the configuration. An explicit path wins; otherwise the same
// CONFIG_ENV-driven guesses as before are tried. A missing file is not an
// error: defaults plus environment overrides are used.
func Load(explicit string) (*Root, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := explicit
	if path == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		for _, p := range []string{
			filepath.Join("config", env, "config.yaml"),
			"config.yaml",
		} {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *Root) Validate() error {
	if r.Audio.SampleRate <= 0 {
		return errors.New("config: audio.sample_rate must be positive")
	}
	if r.Prosody.PitchFloor <= 0 || r.Prosody.PitchCeiling <= r.Prosody.PitchFloor {
		return errors.New("config: prosody pitch floor/ceiling out of order")
	}
	if r.Prosody.TimeStep <= 0 {
		return errors.New("config: prosody.time_step must be positive")
	}
	return nil
}

// YAML renders the effective configuration with credentials masked.
func (r *Root) YAML() ([]byte, error) {
	c := *r
	for _, s := range []*string{&c.Coach.APIKey, &c.Coach.AuthToken, &c.Transcriber.APIKey, &c.Storage.SecretKey} {
		if *s != "" {
			*s = "***"
		}
	}
	return yaml.Marshal(&c)
}

func DurSeconds(f float64) time.Duration { return time.Duration(f * float64(time.Second)) }
