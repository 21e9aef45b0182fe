package main

import (
	"crypto"
	"crypto/ed25519"
	"encoding/base64"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"giftbox/api"
)

func ParseArgs() (Args, error) {
	// server config
	pflag.String("server-url", "0.0.0.0:8080", "")

	// auth config
	pflag.String("auth-private-key-seed", "", "base64-encoded 32-byte Ed25519 seed")
	pflag.String("auth-issuer", "giftbox", "")
	pflag.String("auth-audience", "giftbox", "")
	pflag.Duration("auth-expire-duration", 3*time.Hour, "")
	pflag.String("admin-email", "", "")

	// s3 config
	pflag.String("s3-endpoint", "", "")
	pflag.String("s3-bucket", "", "")
	pflag.String("s3-public-base-url", "", "")
	pflag.String("s3-access-key-id", "", "")
	pflag.String("s3-secret-access-key", "", "")

	// db config
	pflag.String("db-user", "", "")
	pflag.String("db-password", "", "")
	pflag.String("db-host", "", "")
	pflag.Int("db-port", 5432, "")
	pflag.String("db-database", "", "")
	pflag.String("db-schema", "", "")

	// redis config
	pflag.String("redis-addr", "", "")
	pflag.String("redis-password", "", "")
	pflag.Int("redis-db", 0, "")
	pflag.String("redis-key-prefix", "giftbox:", "")

	// upload and cache config
	pflag.Int64("max-image-bytes", 10<<20, "")
	pflag.Duration("gift-cache-ttl", 30*time.Second, "")

	// bind pflag to viper
	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvPrefix("GIFTBOX")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	privateKey, err := parseSigningKey(viper.GetString("auth-private-key-seed"))
	if err != nil {
		return Args{}, err
	}

	// initial arguments
	return Args{
		ServerURL: viper.GetString("server-url"),
		ServerConfig: api.ServerConfig{
			Auth: api.AuthConfig{
				PrivateKey:     privateKey,
				Issuer:         viper.GetString("auth-issuer"),
				Audience:       viper.GetString("auth-audience"),
				ExpireDuration: viper.GetDuration("auth-expire-duration"),
				AdminEmail:     viper.GetString("admin-email"),
			},
			S3: api.S3Config{
				Endpoint:        viper.GetString("s3-endpoint"),
				Bucket:          viper.GetString("s3-bucket"),
				PublicBaseURL:   viper.GetString("s3-public-base-url"),
				AccessKeyID:     viper.GetString("s3-access-key-id"),
				SecretAccessKey: viper.GetString("s3-secret-access-key"),
			},
			DB: api.DBConfig{
				User:     viper.GetString("db-user"),
				Password: viper.GetString("db-password"),
				Host:     viper.GetString("db-host"),
				Port:     viper.GetInt("db-port"),
				Database: viper.GetString("db-database"),
				Schema:   viper.GetString("db-schema"),
			},
			Redis: api.RedisConfig{
				Addr:      viper.GetString("redis-addr"),
				Password:  viper.GetString("redis-password"),
				DB:        viper.GetInt("redis-db"),
				KeyPrefix: viper.GetString("redis-key-prefix"),
			},
			Upload: api.UploadConfig{
				MaxImageBytes: viper.GetInt64("max-image-bytes"),
			},
			Cache: api.CacheConfig{
				GiftListTTL: viper.GetDuration("gift-cache-ttl"),
			},
		},
	}, nil
}

// parseSigningKey decodes a base64 Ed25519 seed into the signing key.
// An empty seed yields a nil key and fails validation later.
func parseSigningKey(encodedSeed string) (crypto.Signer, error) {
	if encodedSeed == "" {
		return nil, nil
	}
	seed, err := base64.StdEncoding.DecodeString(encodedSeed)
	if err != nil {
		return nil, err
	}
	if len(seed) != ed25519.SeedSize {
		return nil, &InvalidSeedError{Length: len(seed)}
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

type InvalidSeedError struct {
	Length int
}

func (e *InvalidSeedError) Error() string {
	return "auth-private-key-seed must decode to exactly 32 bytes"
}

type Args struct {
	ServerURL    string
	ServerConfig api.ServerConfig
}

func (args Args) Validate() bool {
	return args.ServerURL != "" &&
		args.ServerConfig.Auth.PrivateKey != nil &&
		args.ServerConfig.S3.Bucket != "" &&
		args.ServerConfig.DB.Host != ""
}
