package api

import (
	"context"
	"fmt"
	"log/slog"

	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"giftbox/adapters/blur"
	"giftbox/adapters/cache"
	internalS3 "giftbox/adapters/s3"
	"giftbox/models"
	"giftbox/repositories"
)

// ObjectStore is the binary object collaborator of the submission
// pipeline. Delete is best-effort from the caller's point of view.
type ObjectStore interface {
	Upload(ctx context.Context, path, contentType string, fileContent []byte) (string, error)
	Delete(ctx context.Context, publicURL string) error
}

// BlurGenerator derives a preview string from an uploaded image URL.
type BlurGenerator interface {
	Generate(ctx context.Context, imageURL string) (string, error)
}

type ServerImpl struct {
	gifts       repositories.GiftStore
	users       repositories.UserStore
	objectStore ObjectStore
	blur        BlurGenerator
	giftCache   cache.ICache[[]models.Gift]
	htmlChecker *bluemonday.Policy
	redisClient *redis.Client
	db          *gorm.DB

	config ServerConfig
}

func NewServer(config ServerConfig) (*ServerImpl, error) {
	const op = "NewServer"

	// S3 client
	s3Cfg, err := awsCfg.LoadDefaultConfig(
		context.Background(),
		awsCfg.WithBaseEndpoint(config.S3.Endpoint),
		awsCfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(config.S3.AccessKeyID, config.S3.SecretAccessKey, "")),
		awsCfg.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to load AWS config, err=%w", op, err)
	}
	s3Operator, err := internalS3.NewS3Operator(s3.NewFromConfig(s3Cfg), config.S3.Bucket, config.S3.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create S3 operator, err=%w", op, err)
	}

	// database connection
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s", config.DB.User, config.DB.Password, config.DB.Host, config.DB.Port, config.DB.Database, config.DB.Schema)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: config.DB.Schema + ".",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to connect to database, err=%w", op, err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Gift{}); err != nil {
		return nil, fmt.Errorf("[%s] Fail to migrate schema, err=%w", op, err)
	}

	users := repositories.NewUserStore(db)

	// admin provisioning for accounts that already exist; accounts
	// registered later are handled in PostRegister
	if config.Auth.AdminEmail != "" {
		touched, err := users.MarkAdminByEmail(context.Background(), config.Auth.AdminEmail)
		if err != nil {
			return nil, fmt.Errorf("[%s] Fail to provision admin account, err=%w", op, err)
		}
		if touched == 0 {
			slog.Info("Admin account not registered yet, will be flagged at registration", slog.String("email", config.Auth.AdminEmail))
		}
	}

	// redis connection
	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	return &ServerImpl{
		gifts:       repositories.NewGiftStore(db),
		users:       users,
		objectStore: s3Operator,
		blur:        blur.NewGenerator(),
		giftCache:   cache.NewRedisCache[[]models.Gift](redisClient, cache.WithPrefix(config.Redis.KeyPrefix+"gifts:")),
		htmlChecker: bluemonday.StrictPolicy(),
		redisClient: redisClient,
		db:          db,
		config:      config,
	}, nil
}

func (impl *ServerImpl) Close() {
	if sqlDB, err := impl.db.DB(); err == nil {
		sqlDB.Close()
	}
	if impl.redisClient != nil {
		impl.redisClient.Close()
	}
}

// RegisterRoutes attaches the HTTP surface to router. Every gift route
// runs behind RequireAuth.
func (impl *ServerImpl) RegisterRoutes(router *gin.Engine) {
	auth := router.Group("/auth")
	{
		auth.POST("/register", impl.PostRegister)
		auth.POST("/login", impl.PostLogin)
		auth.GET("/logout", impl.GetLogout)
	}

	router.GET("/user/info", impl.RequireAuth(), impl.GetUserInfo)

	gifts := router.Group("/gifts", impl.RequireAuth())
	{
		gifts.POST("", impl.PostGift)
		gifts.GET("", impl.GetGifts)
		gifts.GET("/:id", impl.GetGift)
		gifts.PUT("/:id", impl.PutGift)
		gifts.DELETE("/:id", impl.DeleteGift)
	}
}
