package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	EnginePath string   `mapstructure:"ENGINE_PATH"`
	EngineArgs []string `mapstructure:"ENGINE_ARGS"`
	// EngineDialect picks the output format: "leela" or "leelaz".
	EngineDialect string `mapstructure:"ENGINE_DIALECT"`

	AnalyzeTime       int     `mapstructure:"ANALYZE_TIME"`
	VariationsTime    int     `mapstructure:"VARIATIONS_TIME"`
	NodesPerVariation int     `mapstructure:"NODES_PER_VARIATION"`
	NumToShow         int     `mapstructure:"NUM_TO_SHOW"`
	Restarts          int     `mapstructure:"RESTARTS"`
	AnalyzeThreshold  float64 `mapstructure:"ANALYZE_THRESHOLD"`
	VariationsThresh  float64 `mapstructure:"VARIATIONS_THRESHOLD"`
	Stdev             float64 `mapstructure:"STDEV"`
	AnalyzeStart      int     `mapstructure:"ANALYZE_START"`
	AnalyzeEnd        int     `mapstructure:"ANALYZE_END"`
	SkipWhite         bool    `mapstructure:"SKIP_WHITE"`
	SkipBlack         bool    `mapstructure:"SKIP_BLACK"`
	WipeComments      bool    `mapstructure:"WIPE_COMMENTS"`
	WinGraph          bool    `mapstructure:"WIN_GRAPH"`
	PruneRedundant    bool    `mapstructure:"PRUNE_REDUNDANT"`
	ReportedColor     string  `mapstructure:"REPORTED_COLOR"`

	CommandRetries  int           `mapstructure:"COMMAND_RETRIES"`
	RetryInterval   time.Duration `mapstructure:"RETRY_INTERVAL"`
	PollInterval    time.Duration `mapstructure:"POLL_INTERVAL"`
	ReaderBuffer    int           `mapstructure:"READER_BUFFER"`
	ReaderBackoff   time.Duration `mapstructure:"READER_BACKOFF"`
	StopGracePeriod time.Duration `mapstructure:"STOP_GRACE_PERIOD"`

	CheckpointDir      string `mapstructure:"CHECKPOINT_DIR"`
	CheckpointBackend  string `mapstructure:"CHECKPOINT_BACKEND"`
	CheckpointCompress bool   `mapstructure:"CHECKPOINT_COMPRESS"`
	SkipCheckpoints    bool   `mapstructure:"SKIP_CHECKPOINTS"`
	BadgerPath         string `mapstructure:"BADGER_PATH"`
	RedisUrl           string `mapstructure:"REDIS_URL"`
	MongoUri           string `mapstructure:"MONGO_URI"`
	MongoDatabase      string `mapstructure:"MONGO_DATABASE"`

	ServerPort string  `mapstructure:"SERVER_PORT"`
	GrpcPort   string  `mapstructure:"GRPC_PORT"`
	BoardSize  int     `mapstructure:"BOARD_SIZE"`
	Komi       float64 `mapstructure:"KOMI"`
	Verbosity  int     `mapstructure:"VERBOSITY"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENGINE_PATH", "leelaz")
	v.SetDefault("ENGINE_ARGS", []string{"--gtp", "--noponder"})
	v.SetDefault("ENGINE_DIALECT", "leela")

	v.SetDefault("ANALYZE_TIME", 10)
	v.SetDefault("VARIATIONS_TIME", 10)
	v.SetDefault("NODES_PER_VARIATION", 8)
	v.SetDefault("NUM_TO_SHOW", 0)
	v.SetDefault("RESTARTS", 2)
	v.SetDefault("ANALYZE_THRESHOLD", 0.050)
	v.SetDefault("VARIATIONS_THRESHOLD", 0.100)
	v.SetDefault("STDEV", 1.0)
	v.SetDefault("ANALYZE_START", 0)
	v.SetDefault("ANALYZE_END", 1000)
	v.SetDefault("REPORTED_COLOR", "white")

	v.SetDefault("COMMAND_RETRIES", 200)
	v.SetDefault("RETRY_INTERVAL", 100*time.Millisecond)
	v.SetDefault("POLL_INTERVAL", time.Second)
	v.SetDefault("READER_BUFFER", 1<<16)
	v.SetDefault("READER_BACKOFF", 200*time.Millisecond)
	v.SetDefault("STOP_GRACE_PERIOD", 100*time.Millisecond)

	v.SetDefault("CHECKPOINT_DIR", ".checkpoints")
	v.SetDefault("CHECKPOINT_BACKEND", "file")
	v.SetDefault("BADGER_PATH", ".checkpoints/badger")
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "sgf_review")

	v.SetDefault("SERVER_PORT", ":8082")
	v.SetDefault("GRPC_PORT", ":8083")
	v.SetDefault("BOARD_SIZE", 19)
	v.SetDefault("KOMI", 7.5)
}

// Setup reads cfgPath when it exists; defaults and environment variables
// cover everything else. Flags bound to the global viper instance win.
func Setup(cfgPath string) (*Config, error) {
	setDefaults(viper.GetViper())
	viper.AutomaticEnv()

	if cfgPath != "" {
		if _, err := os.Stat(cfgPath); err == nil {
			viper.SetConfigFile(cfgPath)
			if err := viper.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", cfgPath, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	var cfg Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration without consulting files or the environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic("bootstrap: defaults do not decode: " + err.Error())
	}
	return &cfg
}
