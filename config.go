package main

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"wskdf/internal/kdf"
	"wskdf/internal/logging"
)

const (
	defaultOpsLimit       = 7
	defaultMemLimitKBytes = 4096 * 1024

	envPrefix = "WSKDF"
)

type Config struct {
	KDF    kdf.Params     `mapstructure:"kdf"`
	Log    logging.Config `mapstructure:"log"`
	Report ReportConfig   `mapstructure:"report"`
}

// ReportConfig says where benchmark and estimation tables are uploaded.
// Without static keys the default AWS credential chain is used.
type ReportConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("kdf.ops_limit", defaultOpsLimit)
	v.SetDefault("kdf.mem_limit_kbytes", defaultMemLimitKBytes)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)
	v.SetDefault("report.bucket", "")
	v.SetDefault("report.prefix", "")
	v.SetDefault("report.region", "us-east-1")
	v.SetDefault("report.access_key_id", "")
	v.SetDefault("report.secret_access_key", "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfig reads the optional config file at path, then environment
// variables such as WSKDF_KDF_OPS_LIMIT, over the built-in defaults.
func loadConfig(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &cfg, nil
}

func LoadAWSConfig(ctx context.Context, rc ReportConfig) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(rc.Region)}
	if rc.AccessKeyID != "" || rc.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(rc.AccessKeyID, rc.SecretAccessKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, errors.Wrap(err, "failed to load aws configuration")
	}
	return cfg, nil
}
