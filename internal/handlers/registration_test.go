package handlers

import (
	"context"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/temple-caravans/caravan-api/internal/auth"
	"github.com/temple-caravans/caravan-api/internal/booking"
	"github.com/temple-caravans/caravan-api/internal/capacity"
	"github.com/temple-caravans/caravan-api/internal/config"
	"github.com/temple-caravans/caravan-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	db           *gorm.DB
	engine       *booking.Engine
	auth         *auth.AuthHandler
	registration *RegistrationHandler
	availability *AvailabilityHandler
	caravans     *CaravanHandler
	catalog      *CatalogHandler
	gdpr         *GDPRHandler
	adminCookie  string
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.APIKey{},
		&models.Caravan{}, &models.Bus{}, &models.Chapel{},
		&models.Ordinance{}, &models.Registration{}, &models.RegistrationHistory{},
	); err != nil {
		t.Fatalf("failed to auto migrate: %v", err)
	}

	admin := models.User{DiscordID: "admin", Username: "admin"}
	db.Create(&admin)

	authHandler := auth.NewAuthHandler(&config.Config{JWTSecret: "test-secret"}, db, nil)
	token, err := authHandler.GenerateToken(admin.ID)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	engine := booking.NewEngine(db)
	return &testEnv{
		db:           db,
		engine:       engine,
		auth:         authHandler,
		registration: NewRegistrationHandler(db, engine, nil, authHandler),
		availability: NewAvailabilityHandler(engine),
		caravans:     NewCaravanHandler(db, authHandler),
		catalog:      NewCatalogHandler(db, authHandler),
		gdpr:         NewGDPRHandler(db, engine),
		adminCookie:  "auth_token=" + token,
	}
}

func (e *testEnv) seedCaravanWithBaptistry(t *testing.T, busCapacity, slotCapacity int) (models.Caravan, models.Bus, models.Ordinance) {
	t.Helper()
	bus := models.Bus{Name: "Bus 1", Capacity: busCapacity}
	e.db.Create(&bus)
	ordinance := models.Ordinance{Name: "Baptistry", Sessions: models.OrdinanceSessions{
		{Slot: "9:30-11:00", MaxCapacity: slotCapacity},
	}}
	e.db.Create(&ordinance)
	caravan := models.Caravan{
		Name:            "Test Caravan",
		BusIDs:          models.BusIDList{bus.ID},
		OrdinanceLimits: booking.SnapshotLimits([]models.Ordinance{ordinance}),
		OrdinanceCounts: capacity.CellMap{},
	}
	e.db.Create(&caravan)
	return caravan, bus, ordinance
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	if !errorsAs(err, &se) {
		t.Fatalf("expected a huma status error, got %v", err)
	}
	return se.GetStatus()
}

func errorsAs(err error, target *huma.StatusError) bool {
	se, ok := err.(huma.StatusError)
	if ok {
		*target = se
	}
	return ok
}

func TestHandleCreateRegistration(t *testing.T) {
	env := setupEnv(t)
	caravan, bus, ordinance := env.seedCaravanWithBaptistry(t, 2, 1)

	req := &CreateRegistrationRequest{CaravanID: caravan.ID}
	req.Body.BusID = bus.ID
	req.Body.Phone = "5519999"
	req.Body.FullName = "Irmã Silva"
	req.Body.Gender = "F"
	req.Body.PrivacyPolicyAccepted = true
	req.Body.Ordinances = []models.OrdinanceSelection{{OrdinanceID: ordinance.ID, Slot: "9:30-11:00"}}

	resp, err := env.registration.HandleCreate(context.Background(), req)
	if err != nil {
		t.Fatalf("HandleCreate returned error: %v", err)
	}
	if resp.Body.ParticipationStatus != string(models.ParticipationActive) {
		t.Errorf("expected ACTIVE, got %s", resp.Body.ParticipationStatus)
	}
	if resp.Body.GDPRUUID == "" {
		t.Error("expected a GDPR token on the created registration")
	}

	// Same slot again: the capacity rejection surfaces as a 409 that
	// names the ordinance.
	req2 := &CreateRegistrationRequest{CaravanID: caravan.ID}
	req2.Body.BusID = bus.ID
	req2.Body.Phone = "5518888"
	req2.Body.FullName = "Irmão Costa"
	req2.Body.Gender = "M"
	req2.Body.Ordinances = []models.OrdinanceSelection{{OrdinanceID: ordinance.ID, Slot: "9:30-11:00"}}

	_, err = env.registration.HandleCreate(context.Background(), req2)
	if err == nil {
		t.Fatal("expected capacity error")
	}
	if status := statusOf(t, err); status != 409 {
		t.Errorf("expected 409, got %d", status)
	}
}

func TestHandleCreateValidation(t *testing.T) {
	env := setupEnv(t)
	caravan, bus, _ := env.seedCaravanWithBaptistry(t, 2, 1)

	req := &CreateRegistrationRequest{CaravanID: caravan.ID}
	req.Body.BusID = bus.ID
	// Missing phone and name.
	_, err := env.registration.HandleCreate(context.Background(), req)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if status := statusOf(t, err); status != 400 {
		t.Errorf("expected 400, got %d", status)
	}
}

func TestHandleCancelRequiresAuth(t *testing.T) {
	env := setupEnv(t)

	req := &CancelRegistrationRequest{ID: 1}
	_, err := env.registration.HandleCancel(context.Background(), req)
	if err == nil {
		t.Fatal("expected auth error")
	}
	if status := statusOf(t, err); status != 401 {
		t.Errorf("expected 401, got %d", status)
	}
}

func TestHandleCancelAndPromoteFlow(t *testing.T) {
	env := setupEnv(t)
	caravan, bus, _ := env.seedCaravanWithBaptistry(t, 1, 1)
	ctx := context.Background()

	mk := func(phone string) *RegistrationResponse {
		req := &CreateRegistrationRequest{CaravanID: caravan.ID}
		req.Body.BusID = bus.ID
		req.Body.Phone = phone
		req.Body.FullName = "Participant " + phone
		resp, err := env.registration.HandleCreate(ctx, req)
		if err != nil {
			t.Fatalf("create %s: %v", phone, err)
		}
		return resp
	}

	first := mk("111")
	second := mk("222")
	if second.Body.ParticipationStatus != string(models.ParticipationWaitlist) {
		t.Fatalf("expected second registration waitlisted, got %s", second.Body.ParticipationStatus)
	}

	cancelReq := &CancelRegistrationRequest{ID: first.Body.ID}
	cancelReq.Cookie = env.adminCookie
	cancelReq.Body.Reason = "sick"
	cancelled, err := env.registration.HandleCancel(ctx, cancelReq)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Body.ParticipationStatus != string(models.ParticipationCancelled) {
		t.Errorf("expected CANCELLED, got %s", cancelled.Body.ParticipationStatus)
	}

	promoteReq := &PromoteRegistrationRequest{ID: second.Body.ID}
	promoteReq.Cookie = env.adminCookie
	promoted, err := env.registration.HandlePromote(ctx, promoteReq)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if promoted.Body.ParticipationStatus != string(models.ParticipationActive) {
		t.Errorf("expected ACTIVE after promote, got %s", promoted.Body.ParticipationStatus)
	}
}

func TestHandleAvailability(t *testing.T) {
	env := setupEnv(t)
	caravan, bus, ordinance := env.seedCaravanWithBaptistry(t, 5, 2)
	ctx := context.Background()

	avail, err := env.availability.HandleAvailability(ctx, &AvailabilityRequest{
		CaravanID:   caravan.ID,
		OrdinanceID: ordinance.ID,
		Slot:        "9:30-11:00",
		Gender:      "M",
	})
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if avail.Body.Available != 2 || avail.Body.MaxCapacity != 2 {
		t.Errorf("expected {2,2}, got %+v", avail.Body)
	}

	req := &CreateRegistrationRequest{CaravanID: caravan.ID}
	req.Body.BusID = bus.ID
	req.Body.Phone = "111"
	req.Body.FullName = "Someone"
	req.Body.Ordinances = []models.OrdinanceSelection{{OrdinanceID: ordinance.ID, Slot: "9:30-11:00"}}
	if _, err := env.registration.HandleCreate(ctx, req); err != nil {
		t.Fatalf("create: %v", err)
	}

	batch, err := env.availability.HandleAvailabilityBatch(ctx, &AvailabilityBatchRequest{CaravanID: caravan.ID, Gender: "M"})
	if err != nil {
		t.Fatalf("batch availability: %v", err)
	}
	got := batch.Body[capacity.OrdinanceKey(ordinance.ID)]["9:30-11:00"]
	if got.Available != 1 || got.MaxCapacity != 2 {
		t.Errorf("expected {1,2} after one booking, got %+v", got)
	}

	occ, err := env.availability.HandleBusOccupancy(ctx, &BusOccupancyRequest{CaravanID: caravan.ID, BusID: bus.ID})
	if err != nil {
		t.Fatalf("occupancy: %v", err)
	}
	if occ.Body.Active != 1 {
		t.Errorf("expected 1 active rider, got %d", occ.Body.Active)
	}

	// Unknown caravan fails closed, not with an error.
	closed, err := env.availability.HandleAvailability(ctx, &AvailabilityRequest{
		CaravanID:   9999,
		OrdinanceID: ordinance.ID,
		Slot:        "9:30-11:00",
	})
	if err != nil {
		t.Fatalf("availability for unknown caravan: %v", err)
	}
	if closed.Body.Available != 0 || closed.Body.MaxCapacity != 0 {
		t.Errorf("expected {0,0}, got %+v", closed.Body)
	}
}
