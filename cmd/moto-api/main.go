// README: Entry point; loads config, wires stores, event fan-out and services, starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"moto/internal/config"
	httptransport "moto/internal/http"
	"moto/internal/infra"
	"moto/internal/logging"
	"moto/internal/modules/account"
	"moto/internal/modules/identity"
	"moto/internal/modules/location"
	"moto/internal/modules/pricing"
	"moto/internal/modules/realtime"
	"moto/internal/modules/ride"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("moto-api exited", "err", err)
		os.Exit(1)
	}
}

type stores struct {
	accounts account.Store
	rides    ride.Store
	close    func()
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	hub := realtime.NewHub(log)
	defer hub.Close()

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		if rdb, err = infra.NewRedis(ctx, cfg.Redis.Addr); err != nil {
			return err
		}
		defer rdb.Close()
	}

	var fbApp *firebase.App
	if cfg.Auth.Provider == config.AuthFirebase || cfg.Geo == config.GeoFirebase || cfg.Firebase.Messaging {
		fbApp, err = infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile, cfg.Firebase.DatabaseURL)
		if err != nil {
			return fmt.Errorf("firebase init: %w", err)
		}
	}

	pub, closePub, err := buildPublisher(ctx, cfg, log, hub, rdb, fbApp)
	if err != nil {
		return err
	}
	defer closePub()

	geo, err := buildGeoStore(ctx, cfg, rdb, fbApp)
	if err != nil {
		return err
	}

	accounts := account.NewService(st.accounts, cfg.AutoVerifyDriver)
	prices := pricing.NewService(pricing.DefaultRate(cfg.Pricing.BaseFare))
	locationSvc := location.NewService(accounts, geo, pub, log)
	rides := ride.NewService(st.rides, accounts, prices, pub, log)

	verifier, issuer, err := buildVerifier(ctx, cfg, fbApp)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.ServerDeps{
		Accounts:    accounts,
		Identity:    identity.NewService(accounts, issuer),
		Location:    locationSvc,
		Rides:       rides,
		Hub:         hub,
		Verifier:    verifier,
		Logger:      log,
		CORSOrigins: cfg.HTTP.CORSOrigins,
	})

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http listening", "addr", cfg.HTTP.Addr, "store", cfg.Store, "geo", cfg.Geo, "auth", cfg.Auth.Provider)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return stores{}, err
		}
		return stores{
			accounts: account.NewPostgresStore(pool),
			rides:    ride.NewPostgresStore(pool),
			close:    pool.Close,
		}, nil
	case config.StoreMongo:
		client, db, err := infra.NewMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return stores{}, err
		}
		disconnect := func() { _ = client.Disconnect(context.Background()) }
		accountStore, rideStore := account.NewMongoStore(db), ride.NewMongoStore(db)
		if err := accountStore.EnsureIndexes(ctx); err != nil {
			disconnect()
			return stores{}, err
		}
		if err := rideStore.EnsureIndexes(ctx); err != nil {
			disconnect()
			return stores{}, err
		}
		return stores{accounts: accountStore, rides: rideStore, close: disconnect}, nil
	default:
		return stores{
			accounts: account.NewMemoryStore(),
			rides:    ride.NewMemoryStore(),
			close:    func() {},
		}, nil
	}
}

// buildPublisher assembles the event fan-out. With Redis, local websocket
// clients are fed by the hub's subscription so every instance sees every
// event once; without it the hub is published to directly.
func buildPublisher(ctx context.Context, cfg config.Config, log *slog.Logger, hub *realtime.Hub, rdb *redis.Client, fbApp *firebase.App) (realtime.Publisher, func(), error) {
	var pubs realtime.Multi
	closeFn := func() {}

	if rdb != nil {
		pubs = append(pubs, realtime.NewRedisPublisher(rdb, realtime.DefaultRedisChannel))
		go func() {
			if err := hub.Relay(ctx, rdb, realtime.DefaultRedisChannel); err != nil && ctx.Err() == nil {
				log.Error("event relay stopped", "err", err)
			}
		}()
	} else {
		pubs = append(pubs, hub)
	}

	if cfg.AMQP.URL != "" {
		conn, err := infra.NewAMQP(cfg.AMQP.URL)
		if err != nil {
			return nil, nil, err
		}
		amqpPub, err := realtime.NewAMQPPublisher(conn, realtime.DefaultExchange)
		if err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		pubs = append(pubs, amqpPub)
		closeFn = func() {
			_ = amqpPub.Close()
			_ = conn.Close()
		}
	}

	if cfg.Firebase.Messaging {
		msgClient, err := fbApp.Messaging(ctx)
		if err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("firebase messaging: %w", err)
		}
		pubs = append(pubs, realtime.NewFCMPublisher(msgClient, cfg.Firebase.TopicPrefix))
	}
	return pubs, closeFn, nil
}

func buildGeoStore(ctx context.Context, cfg config.Config, rdb *redis.Client, fbApp *firebase.App) (location.Store, error) {
	switch cfg.Geo {
	case config.GeoRedis:
		return location.NewRedisStore(rdb), nil
	case config.GeoFirebase:
		dbClient, err := fbApp.Database(ctx)
		if err != nil {
			return nil, fmt.Errorf("firebase database: %w", err)
		}
		return location.NewFirebaseStore(dbClient), nil
	default:
		return location.NewMemoryStore(), nil
	}
}

func buildVerifier(ctx context.Context, cfg config.Config, fbApp *firebase.App) (identity.Verifier, *identity.JWTIssuer, error) {
	switch cfg.Auth.Provider {
	case config.AuthFirebase:
		client, err := fbApp.Auth(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("firebase auth: %w", err)
		}
		fb := identity.NewFirebaseVerifier(client)
		if cfg.Auth.JWTSecret == "" {
			return fb, nil, nil
		}
		issuer := identity.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		return identity.Chain{issuer, fb}, issuer, nil
	default:
		issuer := identity.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		return issuer, issuer, nil
	}
}
