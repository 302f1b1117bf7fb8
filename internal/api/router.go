package api

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/IT22056320/ev-booking-backend/internal/auth"
	"github.com/IT22056320/ev-booking-backend/internal/booking"
	bookingHttp "github.com/IT22056320/ev-booking-backend/internal/booking/http"
	"github.com/IT22056320/ev-booking-backend/internal/qr"
	qrHttp "github.com/IT22056320/ev-booking-backend/internal/qr/http"
	"github.com/IT22056320/ev-booking-backend/internal/station"
	stationHttp "github.com/IT22056320/ev-booking-backend/internal/station/http"
	"github.com/IT22056320/ev-booking-backend/internal/user"
	userHttp "github.com/IT22056320/ev-booking-backend/internal/user/http"
)

// Config holds the services and settings the router needs.
type Config struct {
	IsProduction bool
	ProdOrigins  string // comma-separated list of allowed origins

	UserService    user.Service
	StationService station.Service
	BookingService booking.Service
	QRService      qr.Service
	JWTManager     *auth.JWTManager
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global Middleware:
	// - Logger: Logs request information to the console.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(gin.Logger(), gin.Recovery())

	// Configure CORS (Cross-Origin Resource Sharing).
	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction && cfg.ProdOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(cfg.ProdOrigins, ",")
	} else {
		corsConfig.AllowOrigins = []string{
			"http://localhost:3000",
			"http://localhost:8081", // Swagger
		}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)
	// operatorMiddleware: Further checks if the authenticated user has operator privileges.
	operatorMiddleware := RequireOperator(cfg.UserService)

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	userHandler := userHttp.NewHandler(cfg.UserService, cfg.JWTManager)
	stationHandler := stationHttp.NewHandler(cfg.StationService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService, cfg.UserService)
	qrHandler := qrHttp.NewHandler(cfg.QRService, cfg.BookingService, cfg.UserService)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware, operatorMiddleware)
		stationHttp.RegisterRoutes(v1, stationHandler, authMiddleware, operatorMiddleware)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware, operatorMiddleware)
		qrHttp.RegisterRoutes(v1, qrHandler, authMiddleware, operatorMiddleware)
	}

	return r
}
