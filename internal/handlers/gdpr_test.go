package handlers

import (
	"context"
	"testing"

	"github.com/temple-caravans/caravan-api/internal/models"
)

func TestGDPRSelfService(t *testing.T) {
	env := setupEnv(t)
	caravan, bus, ordinance := env.seedCaravanWithBaptistry(t, 5, 1)
	ctx := context.Background()

	req := &CreateRegistrationRequest{CaravanID: caravan.ID}
	req.Body.BusID = bus.ID
	req.Body.Phone = "5519999"
	req.Body.FullName = "Irmã Silva"
	req.Body.PrivacyPolicyAccepted = true
	req.Body.Ordinances = []models.OrdinanceSelection{{OrdinanceID: ordinance.ID, Slot: "9:30-11:00"}}
	created, err := env.registration.HandleCreate(ctx, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	uuid := created.Body.GDPRUUID

	// Export includes the registration and its history.
	export, err := env.gdpr.HandleExport(ctx, &GDPRRequest{UUID: uuid})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if export.Body.Registration.FullName != "Irmã Silva" {
		t.Errorf("unexpected export subject: %s", export.Body.Registration.FullName)
	}
	if export.Body.CaravanName != caravan.Name {
		t.Errorf("expected caravan name %q, got %q", caravan.Name, export.Body.CaravanName)
	}
	if len(export.Body.History) == 0 {
		t.Error("expected history snapshots in export")
	}

	// Withdrawal stamps once and keeps the first timestamp.
	w1, err := env.gdpr.HandleWithdraw(ctx, &GDPRRequest{UUID: uuid})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if w1.Body.ConsentWithdrawnAt == nil {
		t.Fatal("expected withdrawal timestamp")
	}
	w2, err := env.gdpr.HandleWithdraw(ctx, &GDPRRequest{UUID: uuid})
	if err != nil {
		t.Fatalf("second withdraw: %v", err)
	}
	if !w2.Body.ConsentWithdrawnAt.Equal(*w1.Body.ConsentWithdrawnAt) {
		t.Error("second withdrawal must not move the timestamp")
	}

	// Erasure releases the booked slot and removes every trace.
	if _, err := env.gdpr.HandleErase(ctx, &GDPRRequest{UUID: uuid}); err != nil {
		t.Fatalf("erase: %v", err)
	}

	if _, err := env.gdpr.HandleExport(ctx, &GDPRRequest{UUID: uuid}); err == nil {
		t.Error("expected 404 after erasure")
	}

	avail, err := env.availability.HandleAvailability(ctx, &AvailabilityRequest{
		CaravanID:   caravan.ID,
		OrdinanceID: ordinance.ID,
		Slot:        "9:30-11:00",
	})
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if avail.Body.Available != 1 {
		t.Errorf("expected slot released after erasure, got %+v", avail.Body)
	}
}

func TestGDPRUnknownToken(t *testing.T) {
	env := setupEnv(t)

	_, err := env.gdpr.HandleExport(context.Background(), &GDPRRequest{UUID: "nope"})
	if err == nil {
		t.Fatal("expected 404 for unknown token")
	}
	if status := statusOf(t, err); status != 404 {
		t.Errorf("expected 404, got %d", status)
	}
}
