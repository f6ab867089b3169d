package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/temple-caravans/caravan-api/internal/booking"
	"github.com/temple-caravans/caravan-api/internal/models"
	"gorm.io/gorm"
)

// GDPRHandler serves self-service data access keyed by the opaque
// per-registration UUID handed out at signup. No login required: the
// UUID is the credential.
type GDPRHandler struct {
	db     *gorm.DB
	engine *booking.Engine
}

func NewGDPRHandler(db *gorm.DB, engine *booking.Engine) *GDPRHandler {
	return &GDPRHandler{db: db, engine: engine}
}

func (h *GDPRHandler) findByUUID(ctx context.Context, uuid string) (*models.Registration, error) {
	var reg models.Registration
	if err := h.db.WithContext(ctx).Where("gdpr_uuid = ?", uuid).First(&reg).Error; err != nil {
		return nil, huma.Error404NotFound("No registration for this token")
	}
	return &reg, nil
}

type GDPRRequest struct {
	UUID string `path:"uuid"`
}

type GDPRExportResponse struct {
	Body struct {
		Registration RegistrationView   `json:"registration"`
		CaravanName  string             `json:"caravan_name,omitempty"`
		History      []RegistrationView `json:"history"`
		ExportedAt   time.Time          `json:"exported_at"`
	}
}

// HandleExport returns every piece of personal data held for one
// registration, including the audit snapshots.
func (h *GDPRHandler) HandleExport(ctx context.Context, input *GDPRRequest) (*GDPRExportResponse, error) {
	reg, err := h.findByUUID(ctx, input.UUID)
	if err != nil {
		return nil, err
	}

	res := &GDPRExportResponse{}
	res.Body.Registration = toView(reg)
	res.Body.ExportedAt = time.Now()

	var caravan models.Caravan
	if err := h.db.WithContext(ctx).First(&caravan, reg.CaravanID).Error; err == nil {
		res.Body.CaravanName = caravan.Name
	}

	var history []models.RegistrationHistory
	if err := h.db.WithContext(ctx).
		Where("registration_id = ?", reg.ID).
		Order("created_at asc").
		Find(&history).Error; err == nil {
		for i := range history {
			snap := models.Registration{
				Model:              history[i].Model,
				CaravanID:          history[i].CaravanID,
				RegistrationFields: history[i].RegistrationFields,
			}
			res.Body.History = append(res.Body.History, toView(&snap))
		}
	}

	return res, nil
}

type GDPRWithdrawResponse struct {
	Body RegistrationView
}

// HandleWithdraw stamps the consent withdrawal. The first withdrawal
// timestamp is kept on repeat calls.
func (h *GDPRHandler) HandleWithdraw(ctx context.Context, input *GDPRRequest) (*GDPRWithdrawResponse, error) {
	reg, err := h.findByUUID(ctx, input.UUID)
	if err != nil {
		return nil, err
	}

	if reg.ConsentWithdrawnAt == nil {
		now := time.Now()
		if err := h.db.WithContext(ctx).Model(reg).
			Update("consent_withdrawn_at", now).Error; err != nil {
			return nil, huma.Error500InternalServerError("Failed to record withdrawal")
		}
		reg.ConsentWithdrawnAt = &now
	}

	return &GDPRWithdrawResponse{Body: toView(reg)}, nil
}

// HandleErase hard-deletes the registration and its history. Held
// capacity is released first by the engine so counts stay consistent.
func (h *GDPRHandler) HandleErase(ctx context.Context, input *GDPRRequest) (*struct{}, error) {
	reg, err := h.findByUUID(ctx, input.UUID)
	if err != nil {
		return nil, err
	}
	if err := h.engine.Erase(ctx, reg.ID); err != nil {
		return nil, translateError(err)
	}
	return nil, nil
}
