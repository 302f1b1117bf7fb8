package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/IT22056320/ev-booking-backend/internal/api"
	"github.com/IT22056320/ev-booking-backend/internal/auth"
	"github.com/IT22056320/ev-booking-backend/internal/booking"
	"github.com/IT22056320/ev-booking-backend/internal/notify"
	"github.com/IT22056320/ev-booking-backend/internal/qr"
	"github.com/IT22056320/ev-booking-backend/internal/station"
	"github.com/IT22056320/ev-booking-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction  bool
	ProdOrigins   string
	DBPool        *pgxpool.Pool
	Logger        *zap.Logger
	JWTSecret     string
	JWTTTL        time.Duration
	QRTokenSecret string
	BcryptCost    int
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	// Init Components
	passwordHasher := auth.NewBcryptPasswordHasherWithCost(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	notifier := notify.NewLogNotifier(cfg.Logger)

	// User Module
	userRepo := user.NewPgxRepository(cfg.DBPool)
	userService := user.NewService(userRepo, passwordHasher)

	// Station Module
	stationRepo := station.NewPgxRepository(cfg.DBPool)
	stationService := station.NewService(stationRepo)

	// Booking Module
	bookingRepo := booking.NewPgxRepository(cfg.DBPool)
	numberGen := booking.NewNumberGenerator(bookingRepo, cfg.Logger)

	// QR Module reads and writes bookings directly, so it is built on the
	// booking repository before the booking service exists.
	qrSigner := qr.NewSigner(cfg.QRTokenSecret)
	qrService := qr.NewService(bookingRepo, qrSigner, cfg.Logger)

	bookingService := booking.NewService(bookingRepo, stationService, notifier, qrService, numberGen, cfg.Logger)

	// API Router Config
	routerParams := api.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		UserService:    userService,
		StationService: stationService,
		BookingService: bookingService,
		QRService:      qrService,
		JWTManager:     jwtManager,
	}

	// Router
	router := api.NewRouter(routerParams)

	return &Container{
		Router:     router,
		JWTManager: jwtManager,
	}
}
