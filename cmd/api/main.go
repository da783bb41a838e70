package main

import (
	"os"

	"swapcal/cmd/internal/domain/sqlite"
	"swapcal/cmd/internal/domain/sqlite/repository"
	cognitoclient "swapcal/cmd/internal/integration/aws/cognito"
	"swapcal/cmd/internal/routes"
	"swapcal/cmd/internal/service"
	"swapcal/cmd/internal/utils/validators"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

func main() {
	validate := validator.New()
	registerValidators(validate)

	err := godotenv.Load()
	if err != nil {
		log.Fatal("failed to load .env file", err)
	}

	// Init SQLite
	db, err := sqlite.Init(envOr("DB_PATH", "./database.db"))
	if err != nil {
		log.Fatal("failed to initialize database", err)
	}

	// Cognito client
	cogClient, err := cognitoclient.InitCognitoClient()
	if err != nil {
		log.Fatal("failed to initialize cognito client", err)
	}

	// Getting repositories
	userRepo := repository.NewUserRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	swapRepo := repository.NewSwapRepository(db)
	txManager := repository.NewTxManager(db)

	// Getting services
	userService := service.NewUserService(userRepo, validate, cogClient)
	slotService := service.NewSlotService(slotRepo, userRepo, validate)
	swapService := service.NewSwapService(slotRepo, swapRepo, userRepo, txManager, validate)
	marketService := service.NewMarketService(slotRepo, swapRepo, userRepo)

	// Getting routes
	userRoutes := routes.NewUserDefault(userService)
	slotRoutes := routes.NewSlotDefault(slotService)
	swapRoutes := routes.NewSwapDefault(swapService, marketService)

	e := echo.New()
	e.Use(middleware.CORS())

	// Slots (calendar CRUD + the swappable toggle)
	e.GET("/api/events", slotRoutes.GetMySlots)
	e.POST("/api/events", slotRoutes.CreateSlot)
	e.PUT("/api/events/:id", slotRoutes.UpdateSlot)
	e.DELETE("/api/events/:id", slotRoutes.DeleteSlot)
	e.PATCH("/api/events/:id/swappable", slotRoutes.ToggleSwappable)

	// Swap marketplace
	e.GET("/api/swaps/swappable-slots", swapRoutes.GetSwappableSlots)
	e.POST("/api/swaps/swap-request", swapRoutes.CreateSwapRequest)
	e.GET("/api/swaps/requests/incoming", swapRoutes.GetIncomingRequests)
	e.GET("/api/swaps/requests/outgoing", swapRoutes.GetOutgoingRequests)
	e.POST("/api/swaps/swap-response/:id", swapRoutes.RespondToSwap)

	// Users
	e.GET("/api/users", userRoutes.GetUsers)
	e.GET("/api/users/:id", userRoutes.GetUser)
	e.POST("/api/users", userRoutes.Signup)
	e.POST("/api/users/login", userRoutes.Login)
	e.POST("/api/users/verify", userRoutes.VerifySignup)

	err = e.Start(envOr("LISTEN_ADDR", ":6060"))
	if err != nil {
		e.Logger.Fatal(err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func registerValidators(validate *validator.Validate) {
	_ = validate.RegisterValidation("hasupper", validators.HasUpper)
	_ = validate.RegisterValidation("haslower", validators.HasLower)
	_ = validate.RegisterValidation("hasdigit", validators.HasDigit)
	_ = validate.RegisterValidation("hasspecial", validators.HasSpecial)
	_ = validate.RegisterValidation("nodupes", validators.NoDupes)
	_ = validate.RegisterValidation("nospaces", validators.NoWhiteSpaces)
	_ = validate.RegisterValidation("iso8601", validators.IsIso8601)
}
