package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/temple-caravans/caravan-api/internal/auth"
	"github.com/temple-caravans/caravan-api/internal/booking"
	"github.com/temple-caravans/caravan-api/internal/capacity"
	"github.com/temple-caravans/caravan-api/internal/models"
	"gorm.io/gorm"
)

type CaravanHandler struct {
	db          *gorm.DB
	authHandler *auth.AuthHandler
}

func NewCaravanHandler(db *gorm.DB, authHandler *auth.AuthHandler) *CaravanHandler {
	return &CaravanHandler{db: db, authHandler: authHandler}
}

type CreateCaravanRequest struct {
	auth.AuthInput
	Body struct {
		Name                 string     `json:"name" required:"true"`
		DepartureAt          time.Time  `json:"departure_at" required:"true"`
		ReturnAt             time.Time  `json:"return_at" required:"true"`
		RegistrationOpensAt  *time.Time `json:"registration_opens_at,omitempty"`
		RegistrationClosesAt *time.Time `json:"registration_closes_at,omitempty"`
		BusIDs               []uint     `json:"bus_ids,omitempty"`
		OrdinanceIDs         []uint     `json:"ordinance_ids,omitempty" doc:"Ordinances to offer; empty means the whole catalog"`
	}
}

type CaravanResponse struct {
	Body models.Caravan
}

// HandleCreate creates a caravan, snapshotting the ordinance
// catalog's session definitions into the caravan's capacity limits.
// The snapshot is frozen: later catalog edits do not touch it.
func (h *CaravanHandler) HandleCreate(ctx context.Context, input *CreateCaravanRequest) (*CaravanResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	q := h.db.WithContext(ctx)
	var ordinances []models.Ordinance
	if len(input.Body.OrdinanceIDs) > 0 {
		q = q.Where("id IN ?", input.Body.OrdinanceIDs)
	}
	if err := q.Find(&ordinances).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to load ordinance catalog")
	}

	caravan := models.Caravan{
		Name:                 input.Body.Name,
		DepartureAt:          input.Body.DepartureAt,
		ReturnAt:             input.Body.ReturnAt,
		RegistrationOpensAt:  input.Body.RegistrationOpensAt,
		RegistrationClosesAt: input.Body.RegistrationClosesAt,
		BusIDs:               input.Body.BusIDs,
		OrdinanceLimits:      booking.SnapshotLimits(ordinances),
		OrdinanceCounts:      capacity.CellMap{},
	}

	if err := h.db.Create(&caravan).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to create caravan")
	}

	return &CaravanResponse{Body: caravan}, nil
}

type GetCaravanRequest struct {
	ID uint `path:"id"`
}

func (h *CaravanHandler) HandleGet(ctx context.Context, input *GetCaravanRequest) (*CaravanResponse, error) {
	var caravan models.Caravan
	if err := h.db.WithContext(ctx).First(&caravan, input.ID).Error; err != nil {
		return nil, huma.Error404NotFound("Caravan not found")
	}
	return &CaravanResponse{Body: caravan}, nil
}

type ListCaravansRequest struct{}

type ListCaravansResponse struct {
	Body []models.Caravan
}

func (h *CaravanHandler) HandleList(ctx context.Context, input *ListCaravansRequest) (*ListCaravansResponse, error) {
	var caravans []models.Caravan
	if err := h.db.WithContext(ctx).Order("departure_at asc").Find(&caravans).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to list caravans")
	}
	return &ListCaravansResponse{Body: caravans}, nil
}

type UpdateCaravanRequest struct {
	auth.AuthInput
	ID   uint `path:"id"`
	Body struct {
		Name                 *string    `json:"name,omitempty"`
		DepartureAt          *time.Time `json:"departure_at,omitempty"`
		ReturnAt             *time.Time `json:"return_at,omitempty"`
		RegistrationOpensAt  *time.Time `json:"registration_opens_at,omitempty"`
		RegistrationClosesAt *time.Time `json:"registration_closes_at,omitempty"`
		BusIDs               *[]uint    `json:"bus_ids,omitempty"`
	}
}

// HandleUpdate edits name, dates and bus assignments. Capacity limits
// and counts are deliberately not editable here: limits are a frozen
// snapshot and counts belong to the booking engine.
func (h *CaravanHandler) HandleUpdate(ctx context.Context, input *UpdateCaravanRequest) (*CaravanResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	var caravan models.Caravan
	if err := h.db.WithContext(ctx).First(&caravan, input.ID).Error; err != nil {
		return nil, huma.Error404NotFound("Caravan not found")
	}

	updates := map[string]interface{}{}
	if input.Body.Name != nil {
		updates["name"] = *input.Body.Name
	}
	if input.Body.DepartureAt != nil {
		updates["departure_at"] = *input.Body.DepartureAt
	}
	if input.Body.ReturnAt != nil {
		updates["return_at"] = *input.Body.ReturnAt
	}
	if input.Body.RegistrationOpensAt != nil {
		updates["registration_opens_at"] = *input.Body.RegistrationOpensAt
	}
	if input.Body.RegistrationClosesAt != nil {
		updates["registration_closes_at"] = *input.Body.RegistrationClosesAt
	}
	if input.Body.BusIDs != nil {
		updates["bus_ids"] = models.BusIDList(*input.Body.BusIDs)
	}
	if len(updates) > 0 {
		if err := h.db.Model(&caravan).Updates(updates).Error; err != nil {
			return nil, huma.Error500InternalServerError("Failed to update caravan")
		}
	}

	if err := h.db.First(&caravan, input.ID).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to reload caravan")
	}
	return &CaravanResponse{Body: caravan}, nil
}

type DeleteCaravanRequest struct {
	auth.AuthInput
	ID uint `path:"id"`
}

func (h *CaravanHandler) HandleDelete(ctx context.Context, input *DeleteCaravanRequest) (*struct{}, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}
	if err := h.db.WithContext(ctx).Delete(&models.Caravan{}, input.ID).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to delete caravan")
	}
	return nil, nil
}
