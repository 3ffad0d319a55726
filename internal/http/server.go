// README: API gateway; registers HTTP routes and delegates to module services.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"moto/internal/http/handlers"
	"moto/internal/http/middleware"
	"moto/internal/modules/account"
	"moto/internal/modules/identity"
	"moto/internal/modules/location"
	"moto/internal/modules/realtime"
	"moto/internal/modules/ride"
	"moto/internal/types"
)

type ServerDeps struct {
	Accounts    *account.Service
	Identity    *identity.Service
	Location    *location.Service
	Rides       *ride.Service
	Hub         *realtime.Hub
	Verifier    identity.Verifier
	Logger      *slog.Logger
	CORSOrigins []string
}

func NewRouter(deps ServerDeps) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(log),
		middleware.Recovery(log),
		cors.New(corsConfig(deps.CORSOrigins)),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "time": time.Now().UTC()})
	})

	auth := middleware.Auth(deps.Verifier)
	riderOnly := middleware.RequireRole(types.RoleRider)
	driverOnly := middleware.RequireRole(types.RoleDriver)

	authHandler := handlers.NewAuthHandler(deps.Identity)
	riderHandler := handlers.NewRiderHandler(deps.Accounts)
	driverHandler := handlers.NewDriverHandler(deps.Accounts, deps.Location)
	rideHandler := handlers.NewRideHandler(deps.Rides)

	riders := r.Group("/api/riders")
	riders.POST("/register", authHandler.RegisterRider)
	riders.POST("/login", authHandler.LoginRider)
	riders.GET("/profile", auth, riderOnly, riderHandler.Profile)

	drivers := r.Group("/api/drivers")
	drivers.POST("/register", authHandler.RegisterDriver)
	drivers.POST("/login", authHandler.LoginDriver)
	drivers.GET("/nearby", driverHandler.Nearby)
	drivers.GET("/profile", auth, driverOnly, driverHandler.Profile)
	drivers.PUT("/availability", auth, driverOnly, driverHandler.SetAvailability)
	drivers.PUT("/location", auth, driverOnly, driverHandler.UpdateLocation)

	rides := r.Group("/api/rides")
	rides.GET("/estimate", rideHandler.Estimate)
	rides.POST("/request", auth, riderOnly, rideHandler.Request)
	rides.GET("/available", auth, driverOnly, rideHandler.Available)
	rides.GET("/history", auth, rideHandler.History)
	rides.GET("/:id", auth, rideHandler.Get)
	rides.PUT("/:id/accept", auth, driverOnly, rideHandler.Accept)
	rides.PUT("/:id/start", auth, driverOnly, rideHandler.Start)
	rides.PUT("/:id/complete", auth, driverOnly, rideHandler.Complete)
	rides.PUT("/:id/cancel", auth, rideHandler.Cancel)
	rides.PUT("/:id/rate", auth, rideHandler.Rate)

	if deps.Hub != nil {
		r.GET("/ws", auth, handlers.NewWSHandler(deps.Hub).Serve)
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
