package api

import (
	"crypto"
	"time"
)

type ServerConfig struct {
	Auth   AuthConfig
	S3     S3Config
	DB     DBConfig
	Redis  RedisConfig
	Upload UploadConfig
	Cache  CacheConfig
}

type AuthConfig struct {
	// PrivateKey is the Ed25519 key used to sign and verify access
	// tokens.
	PrivateKey     crypto.Signer
	Issuer         string
	Audience       string
	ExpireDuration time.Duration
	// AdminEmail provisions the feed recipient: the matching account
	// is flagged as admin at startup or at registration time.
	AdminEmail string
}

type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	Bucket          string
	PublicBaseURL   string
}

type DBConfig struct {
	User     string
	Password string
	Host     string
	Port     int
	Database string
	Schema   string
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

type UploadConfig struct {
	// MaxImageBytes bounds a gift image upload. The same value must be
	// configured client-side.
	MaxImageBytes int64
}

type CacheConfig struct {
	// GiftListTTL bounds how stale the cached feed may get. Mutations
	// invalidate the cache on top of this.
	GiftListTTL time.Duration
}
