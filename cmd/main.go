package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/insport-app/auth-service/internal/channel"
	"github.com/insport-app/auth-service/internal/config"
	"github.com/insport-app/auth-service/internal/crypto"
	"github.com/insport-app/auth-service/internal/database"
	"github.com/insport-app/auth-service/internal/handlers"
	"github.com/insport-app/auth-service/internal/otp"
	"github.com/insport-app/auth-service/internal/password"
	"github.com/insport-app/auth-service/internal/ratelimit"
	"github.com/insport-app/auth-service/internal/repository"
	"github.com/insport-app/auth-service/internal/server"
	"github.com/insport-app/auth-service/internal/services"
	"github.com/insport-app/auth-service/internal/session"
	"github.com/insport-app/auth-service/internal/token"
	"github.com/insport-app/auth-service/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables:", err)
	}

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := utils.NewLogger(cfg.App.Env)
	defer func() {
		_ = logger.Sync()
	}()
	sugar := logger.Sugar()
	sugar.Infof("Starting auth-service in %s environment on port %d", cfg.App.Env, cfg.App.Port)

	db, mongoClient, err := database.ConnectMongo(cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.MaxPoolSize, sugar)
	if err != nil {
		sugar.Fatal(err)
	}
	rdb, err := database.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize, sugar)
	if err != nil {
		sugar.Fatal(err)
	}

	sms := channel.NewTwilioClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.From)
	if !sms.IsConfigured() {
		sugar.Warn("Twilio client not fully configured. SMS delivery will fail.")
	}
	email := channel.NewBrevoClient(cfg.Brevo.APIKey, cfg.Brevo.FromEmail, cfg.Brevo.FromName)
	if !email.IsConfigured() {
		sugar.Warn("Brevo client not fully configured. Email delivery will fail.")
	}
	dispatcher := channel.NewDispatcher(sms, email)

	codec, err := crypto.NewCodec(cfg.Security.EncryptionKey)
	if err != nil {
		sugar.Fatalf("failed to initialize cipher: %v", err)
	}

	flowSigner, err := token.NewSigner(cfg.App.JWT.Secret, cfg.App.JWT.FlowTokenTTL)
	if err != nil {
		sugar.Fatalf("failed to initialize flow token signer: %v", err)
	}
	accessSigner, err := token.NewSigner(cfg.App.JWT.Secret, cfg.App.JWT.AccessTTL)
	if err != nil {
		sugar.Fatalf("failed to initialize access token signer: %v", err)
	}

	store := session.NewRedisStore(rdb)
	otpSvc := otp.NewService(store, codec, dispatcher, otp.Config{
		Length:         cfg.Security.OTPLength,
		Expiration:     cfg.Security.OTPExpiration,
		ResendInterval: cfg.Security.OTPResendInterval,
		MaxAttempts:    cfg.Security.OTPMaxAttempts,
	}, sugar)
	limiter := ratelimit.New(store, "ratelimit:otp:", cfg.Security.OTPRateLimit, cfg.Security.OTPRateWindow)

	hashParams := password.Params{
		Memory:      cfg.Security.Argon2Memory,
		Iterations:  cfg.Security.Argon2Iterations,
		Parallelism: cfg.Security.Argon2Parallelism,
		SaltLength:  16,
		KeyLength:   32,
	}

	userRepo := repository.NewMongoUserRepo(mongoClient, db, cfg.Mongo.UsersCollection, cfg.Mongo.ProfilesCollection)
	signupSvc := services.NewSignupService(userRepo, store, otpSvc, limiter, flowSigner, cfg.Security.TempDataExpiration, hashParams, sugar)
	loginSvc := services.NewLoginService(userRepo, accessSigner, cfg.Security.MaxLoginAttempts, cfg.Security.LockDuration, sugar)

	h := handlers.NewHandler(signupSvc, loginSvc, flowSigner, sugar)
	app := server.New(cfg, h, sugar)

	go func() {
		listenAddr := fmt.Sprintf(":%d", cfg.App.Port)
		sugar.Infof("Server listening on %s", listenAddr)
		if err := app.Listen(listenAddr); err != nil {
			sugar.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	sugar.Info("Shutting down server...")

	ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()

	if err := app.ShutdownWithContext(ctxShut); err != nil {
		sugar.Errorf("Fiber app shutdown error: %v", err)
	}
	if err := mongoClient.Disconnect(ctxShut); err != nil {
		sugar.Errorf("MongoDB disconnect error: %v", err)
	}
	if err := rdb.Close(); err != nil {
		sugar.Errorf("Redis client close error: %v", err)
	}

	sugar.Info("Graceful shutdown complete.")
}
