package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/database"
	"github.com/iliyamo/auth-service/internal/handler"
	"github.com/iliyamo/auth-service/internal/mail"
	"github.com/iliyamo/auth-service/internal/queue"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/router"
	"github.com/iliyamo/auth-service/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	mailer := mail.NewQueueMailer(cfg.AppName, cfg.ClientURL)
	authSvc := service.NewAuthService(cfg, users, tokens, mailer)
	googleSvc := service.NewGoogleService(users, authSvc)
	dirSvc := service.NewDirectoryService(users, tokens)

	// The consumer drains the email queue and hands messages to SMTP.
	// It reconnects on its own, so a broker restart only delays mail.
	go queue.StartEmailConsumer(mail.NewSMTPSender(
		cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.EmailFrom))

	go sweepExpiredTokens(tokens)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Deps{
		Cfg:    cfg,
		Users:  users,
		Redis:  rdb,
		Auth:   handler.NewAuthHandler(cfg, authSvc),
		Google: handler.NewGoogleHandler(cfg, googleSvc),
		User:   handler.NewUserHandler(dirSvc),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// sweepExpiredTokens clears dead ledger rows once at startup and then
// hourly. Expired rows are already unusable; the sweep just keeps the
// table and the session listings tidy.
func sweepExpiredTokens(tokens *repository.TokenRepo) {
	sweep := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := tokens.DeleteExpired(ctx, time.Now().UTC())
		if err != nil {
			log.Printf("token sweep: %v", err)
			return
		}
		if n > 0 {
			log.Printf("token sweep: removed %d expired tokens", n)
		}
	}

	sweep()
	for range time.Tick(time.Hour) {
		sweep()
	}
}
