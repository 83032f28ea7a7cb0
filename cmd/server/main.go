package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Fuzzydust/bb-CBA/internal/hub"
	"github.com/Fuzzydust/bb-CBA/internal/httpapi"
	"github.com/Fuzzydust/bb-CBA/internal/matchmaker"
	"github.com/Fuzzydust/bb-CBA/internal/session"
	"github.com/Fuzzydust/bb-CBA/internal/store"
)

func main() {
	_ = godotenv.Load()

	var logger *zap.Logger
	var err error
	if os.Getenv("APP_ENV") == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	addr := getenv("ADDR", ":8080")
	poll := session.DefaultPollInterval
	if raw := os.Getenv("SYNC_POLL_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			poll = d
		} else {
			logger.Warn("invalid SYNC_POLL_INTERVAL, using default", zap.String("value", raw))
		}
	}

	var st store.Store
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := store.Open(dsn, logger)
		if err != nil {
			logger.Fatal("store open failed", zap.Error(err))
		}
		st = db
	} else {
		logger.Warn("DATABASE_URL not set, running on the in-memory store")
		mem := store.NewMemory()
		seedDevCards(mem, logger)
		st = mem
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := hub.NewHub(ctx, st, logger, poll)
	mm := matchmaker.New(st, logger)

	srv := &http.Server{Addr: addr, Handler: httpapi.SetupRoutes(mm, h, logger)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		h.Inbox() <- hub.ShutdownHub{}
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

// seedDevCards gives the DB-less mode a usable roster. Card authoring
// lives outside this service, so without a seed the memory store could
// never pair anyone.
func seedDevCards(st store.Store, log *zap.Logger) {
	cards := []store.Card{
		{ID: "dev-salamander", UserID: "dev", Name: "Salamander", HP: 300, Attack: 60, Defense: 20, Speed: 50, CardType: "Fire", SpecialAbility: "Flame Burst", AbilityType: "attack", AbilityPower: 70},
		{ID: "dev-volt", UserID: "dev", Name: "Volt", HP: 500, Attack: 40, Defense: 10, Speed: 30, CardType: "Electric", SpecialAbility: "Shock Wave", AbilityType: "attack", AbilityPower: 55},
		{ID: "dev-tidecaller", UserID: "dev", Name: "Tidecaller", HP: 350, Attack: 45, Defense: 30, Speed: 40, CardType: "Water", SpecialAbility: "Riptide", AbilityType: "attack", AbilityPower: 60},
		{ID: "dev-glacier", UserID: "dev", Name: "Glacier", HP: 450, Attack: 35, Defense: 45, Speed: 15, CardType: "Ice", SpecialAbility: "Frost Wall", AbilityType: "defense", AbilityPower: 50},
		{ID: "dev-boulder", UserID: "dev", Name: "Boulder", HP: 400, Attack: 50, Defense: 60, Speed: 10, CardType: "Stone", SpecialAbility: "Rockslide", AbilityType: "attack", AbilityPower: 65},
	}
	for i := range cards {
		if err := st.CreateCard(context.Background(), &cards[i]); err != nil {
			log.Warn("seed card failed", zap.String("name", cards[i].Name), zap.Error(err))
			continue
		}
		log.Info("seeded dev card", zap.String("card_id", cards[i].ID), zap.String("name", cards[i].Name))
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
