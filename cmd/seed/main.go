package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"telegram-account-manager/internal/config"
	"telegram-account-manager/internal/domain/model"
	"telegram-account-manager/internal/infra/adapters/mtproto"
	pg "telegram-account-manager/internal/infra/db/postgres"
	"telegram-account-manager/internal/infra/logging"
	"telegram-account-manager/internal/usecase"
)

// seed imports an existing Telethon string session for an owner, or lists the owner's
// accounts with their validity when -session is omitted.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	owner := flag.Int64("owner", 0, "bot user id that owns the account")
	phone := flag.String("phone", "", "account phone number (with +)")
	session := flag.String("session", "", "Telethon string session to import")
	flag.Parse()

	if *owner == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// ---- Config ----
	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Connect Postgres
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}

	accounts := pg.NewAccountRepo(pool)
	sessions := usecase.NewSessionUseCase(accounts, mtproto.NewGateway(logger), nil, usecase.SessionOptions{Dev: true}, logger)

	if *session == "" {
		list, err := sessions.ListAccounts(ctx, *owner)
		if err != nil {
			log.Fatalf("list accounts: %v", err)
		}
		fmt.Printf("%d accounts for owner %d\n", len(list), *owner)
		for _, a := range list {
			fmt.Printf("  - %s valid=%t\n", a.Phone, a.Valid)
		}
		return
	}

	endpoint, err := mtproto.DecodeStringSession(*session)
	if err != nil {
		log.Fatalf("decode session: %v", err)
	}
	app := model.AppCredentials{ID: cfg.TelegramAPI.AppID, Hash: cfg.TelegramAPI.AppHash}
	acc, err := model.NewAccount(*owner, *phone, app, *session)
	if err != nil {
		log.Fatalf("account %q: %v", *phone, err)
	}
	if !sessions.Probe(ctx, acc) {
		log.Fatalf("session for %s is not authorized (dc=%d); nothing imported", acc.Phone, endpoint.DC)
	}
	if err := accounts.Upsert(ctx, acc); err != nil {
		log.Fatalf("upsert: %v", err)
	}

	fmt.Printf("✅ imported %s for owner %d (dc=%d %s:%d)\n", acc.Phone, acc.OwnerID, endpoint.DC, endpoint.Address, endpoint.Port)
}
