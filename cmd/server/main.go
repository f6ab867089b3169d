package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/go-chi/chi/v5"
	"github.com/temple-caravans/caravan-api/internal/auth"
	"github.com/temple-caravans/caravan-api/internal/booking"
	"github.com/temple-caravans/caravan-api/internal/config"
	"github.com/temple-caravans/caravan-api/internal/database"
	"github.com/temple-caravans/caravan-api/internal/handlers"
	"github.com/temple-caravans/caravan-api/internal/notifier"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	// Connect to Database
	db := database.Connect(cfg)

	// Initialize Notifier
	var bookingNotifier notifier.Notifier
	if cfg.DiscordBotToken != "" {
		session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
		if err != nil {
			log.Printf("Discord notifier not initialized: %v", err)
		} else {
			bookingNotifier = notifier.NewDiscordNotifier(session, cfg.DiscordNotificationsChannelID)
		}
	}

	// Initialize Handlers
	authHandler := auth.NewAuthHandler(cfg, db, nil)
	engine := booking.NewEngine(db)
	registrationHandler := handlers.NewRegistrationHandler(db, engine, bookingNotifier, authHandler)
	availabilityHandler := handlers.NewAvailabilityHandler(engine)
	caravanHandler := handlers.NewCaravanHandler(db, authHandler)
	catalogHandler := handlers.NewCatalogHandler(db, authHandler)
	gdprHandler := handlers.NewGDPRHandler(db, engine)
	apiKeyHandler := handlers.NewAPIKeyHandler(db, authHandler)

	// Initialize Router
	r := chi.NewRouter()

	// Register Routes
	handlers.RegisterRoutes(r, authHandler, registrationHandler, availabilityHandler,
		caravanHandler, catalogHandler, gdprHandler, apiKeyHandler)

	// Start Server
	log.Printf("Starting server on port %s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
