package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/temple-caravans/caravan-api/internal/auth"
)

func RegisterRoutes(
	r *chi.Mux,
	authHandler *auth.AuthHandler,
	registrationHandler *RegistrationHandler,
	availabilityHandler *AvailabilityHandler,
	caravanHandler *CaravanHandler,
	catalogHandler *CatalogHandler,
	gdprHandler *GDPRHandler,
	apiKeyHandler *APIKeyHandler,
) {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Initialize Huma API
	config := huma.DefaultConfig("Caravan Registration API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: "auth_token",
		},
		"apiKeyAuth": {
			Type: "apiKey",
			In:   "header",
			Name: "X-API-KEY",
		},
	}
	api := humachi.New(r, config)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Auth routes
	r.Get("/auth/discord/login", authHandler.HandleLogin)
	r.Get("/auth/discord/callback", authHandler.HandleCallback)

	// Public registration and read-side routes
	huma.Post(api, "/caravans/{caravanID}/registrations", registrationHandler.HandleCreate)
	huma.Get(api, "/caravans/{caravanID}/availability", availabilityHandler.HandleAvailabilityBatch)
	huma.Get(api, "/caravans/{caravanID}/availability/slot", availabilityHandler.HandleAvailability)
	huma.Get(api, "/caravans/{caravanID}/buses/{busID}/occupancy", availabilityHandler.HandleBusOccupancy)
	huma.Get(api, "/caravans", caravanHandler.HandleList)
	huma.Get(api, "/caravans/{id}", caravanHandler.HandleGet)
	huma.Get(api, "/buses", catalogHandler.HandleListBuses)
	huma.Get(api, "/chapels", catalogHandler.HandleListChapels)
	huma.Get(api, "/ordinances", catalogHandler.HandleListOrdinances)

	// GDPR self-service, keyed by the per-registration token
	huma.Get(api, "/gdpr/{uuid}", gdprHandler.HandleExport)
	huma.Post(api, "/gdpr/{uuid}/withdraw", gdprHandler.HandleWithdraw)
	huma.Delete(api, "/gdpr/{uuid}", gdprHandler.HandleErase)

	// Admin routes; each operation authorizes via cookie or API key
	adminSecurity := func(o *huma.Operation) {
		o.Security = []map[string][]string{{"cookieAuth": {}}, {"apiKeyAuth": {}}}
	}
	huma.Patch(api, "/registrations/{id}", registrationHandler.HandleUpdate, adminSecurity)
	huma.Post(api, "/registrations/{id}/cancel", registrationHandler.HandleCancel, adminSecurity)
	huma.Post(api, "/registrations/{id}/promote", registrationHandler.HandlePromote, adminSecurity)
	huma.Post(api, "/registrations/{id}/payment", registrationHandler.HandleMarkPaid, adminSecurity)
	huma.Get(api, "/caravans/{caravanID}/registrations", registrationHandler.HandleList, adminSecurity)

	huma.Post(api, "/caravans", caravanHandler.HandleCreate, adminSecurity)
	huma.Patch(api, "/caravans/{id}", caravanHandler.HandleUpdate, adminSecurity)
	huma.Delete(api, "/caravans/{id}", caravanHandler.HandleDelete, adminSecurity)
	huma.Post(api, "/buses", catalogHandler.HandleCreateBus, adminSecurity)
	huma.Post(api, "/chapels", catalogHandler.HandleCreateChapel, adminSecurity)
	huma.Post(api, "/ordinances", catalogHandler.HandleCreateOrdinance, adminSecurity)

	huma.Post(api, "/api-keys", apiKeyHandler.HandleCreate, adminSecurity)
	huma.Get(api, "/api-keys", apiKeyHandler.HandleList, adminSecurity)
	huma.Delete(api, "/api-keys/{id}", apiKeyHandler.HandleDelete, adminSecurity)
}
