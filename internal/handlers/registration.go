package handlers

import (
	"context"
	"log"
	"time"

	"github.com/temple-caravans/caravan-api/internal/auth"
	"github.com/temple-caravans/caravan-api/internal/booking"
	"github.com/temple-caravans/caravan-api/internal/capacity"
	"github.com/temple-caravans/caravan-api/internal/models"
	"github.com/temple-caravans/caravan-api/internal/notifier"
	"gorm.io/gorm"
)

type RegistrationHandler struct {
	db          *gorm.DB
	engine      *booking.Engine
	notifier    notifier.Notifier
	authHandler *auth.AuthHandler
}

func NewRegistrationHandler(db *gorm.DB, engine *booking.Engine, notifier notifier.Notifier, authHandler *auth.AuthHandler) *RegistrationHandler {
	return &RegistrationHandler{db: db, engine: engine, notifier: notifier, authHandler: authHandler}
}

// RegistrationView is the wire shape of a registration.
type RegistrationView struct {
	ID                    uint                        `json:"id"`
	CaravanID             uint                        `json:"caravan_id"`
	ChapelID              uint                        `json:"chapel_id"`
	BusID                 uint                        `json:"bus_id"`
	Phone                 string                      `json:"phone"`
	FullName              string                      `json:"full_name"`
	AgeCategory           string                      `json:"age_category"`
	Gender                string                      `json:"gender"`
	IsOfficiator          bool                        `json:"is_officiator"`
	GuardianName          string                      `json:"guardian_name,omitempty"`
	GuardianPhone         string                      `json:"guardian_phone,omitempty"`
	Ordinances            []models.OrdinanceSelection `json:"ordinances"`
	SkipsOrdinances       bool                        `json:"skips_ordinances"`
	IsFirstTimeConvert    bool                        `json:"is_first_time_convert"`
	PaymentStatus         string                      `json:"payment_status"`
	ParticipationStatus   string                      `json:"participation_status"`
	CancelReason          string                      `json:"cancel_reason,omitempty"`
	CancelledAt           *time.Time                  `json:"cancelled_at,omitempty"`
	PaymentReportedAt     *time.Time                  `json:"payment_reported_at,omitempty"`
	PrivacyPolicyAccepted bool                        `json:"privacy_policy_accepted"`
	GDPRUUID              string                      `json:"gdpr_uuid"`
	ConsentWithdrawnAt    *time.Time                  `json:"consent_withdrawn_at,omitempty"`
	CreatedAt             time.Time                   `json:"created_at"`
}

func toView(r *models.Registration) RegistrationView {
	return RegistrationView{
		ID:                    r.ID,
		CaravanID:             r.CaravanID,
		ChapelID:              r.ChapelID,
		BusID:                 r.BusID,
		Phone:                 r.Phone,
		FullName:              r.FullName,
		AgeCategory:           r.AgeCategory,
		Gender:                string(r.Gender),
		IsOfficiator:          r.IsOfficiator,
		GuardianName:          r.GuardianName,
		GuardianPhone:         r.GuardianPhone,
		Ordinances:            r.Ordinances,
		SkipsOrdinances:       r.SkipsOrdinances,
		IsFirstTimeConvert:    r.IsFirstTimeConvert,
		PaymentStatus:         string(r.PaymentStatus),
		ParticipationStatus:   string(r.ParticipationStatus),
		CancelReason:          r.CancelReason,
		CancelledAt:           r.CancelledAt,
		PaymentReportedAt:     r.PaymentReportedAt,
		PrivacyPolicyAccepted: r.PrivacyPolicyAccepted,
		GDPRUUID:              r.GDPRUUID,
		ConsentWithdrawnAt:    r.ConsentWithdrawnAt,
		CreatedAt:             r.CreatedAt,
	}
}

func (h *RegistrationHandler) notify(fn func(notifier.Notifier) error) {
	if h.notifier == nil {
		return
	}
	if err := fn(h.notifier); err != nil {
		log.Printf("Failed to send notification: %v", err)
	}
}

type CreateRegistrationRequest struct {
	CaravanID uint `path:"caravanID" doc:"Caravan to register for"`
	Body      struct {
		ChapelID              uint                        `json:"chapel_id" doc:"Origin chapel"`
		BusID                 uint                        `json:"bus_id" required:"true" doc:"Assigned bus"`
		Phone                 string                      `json:"phone" required:"true" doc:"Contact phone, unique per caravan"`
		FullName              string                      `json:"full_name" required:"true"`
		AgeCategory           string                      `json:"age_category" doc:"e.g. ADULT, YOUTH"`
		Gender                string                      `json:"gender" enum:"M,F" doc:"Participant gender"`
		IsOfficiator          bool                        `json:"is_officiator"`
		GuardianName          string                      `json:"guardian_name,omitempty" doc:"Legal guardian for minors"`
		GuardianPhone         string                      `json:"guardian_phone,omitempty"`
		Ordinances            []models.OrdinanceSelection `json:"ordinances,omitempty" maxItems:"3" doc:"Up to 3 ordinance slot selections"`
		SkipsOrdinances       bool                        `json:"skips_ordinances" doc:"Rides along without booking ordinances"`
		IsFirstTimeConvert    bool                        `json:"is_first_time_convert" doc:"First-time converts ride free"`
		PrivacyPolicyAccepted bool                        `json:"privacy_policy_accepted"`
	}
}

type RegistrationResponse struct {
	Body RegistrationView
}

func (h *RegistrationHandler) HandleCreate(ctx context.Context, input *CreateRegistrationRequest) (*RegistrationResponse, error) {
	reg, err := h.engine.Create(ctx, booking.CreateInput{
		CaravanID:             input.CaravanID,
		ChapelID:              input.Body.ChapelID,
		BusID:                 input.Body.BusID,
		Phone:                 input.Body.Phone,
		FullName:              input.Body.FullName,
		AgeCategory:           input.Body.AgeCategory,
		Gender:                capacity.Gender(input.Body.Gender),
		IsOfficiator:          input.Body.IsOfficiator,
		GuardianName:          input.Body.GuardianName,
		GuardianPhone:         input.Body.GuardianPhone,
		Ordinances:            input.Body.Ordinances,
		SkipsOrdinances:       input.Body.SkipsOrdinances,
		IsFirstTimeConvert:    input.Body.IsFirstTimeConvert,
		PrivacyPolicyAccepted: input.Body.PrivacyPolicyAccepted,
	})
	if err != nil {
		return nil, translateError(err)
	}

	var caravan models.Caravan
	if err := h.db.First(&caravan, reg.CaravanID).Error; err == nil {
		h.notify(func(n notifier.Notifier) error {
			return n.NotifyRegistration(caravan, *reg)
		})
	}

	return &RegistrationResponse{Body: toView(reg)}, nil
}

type UpdateRegistrationRequest struct {
	auth.AuthInput
	ID   uint `path:"id"`
	Body struct {
		ChapelID        *uint                        `json:"chapel_id,omitempty"`
		Phone           *string                      `json:"phone,omitempty"`
		FullName        *string                      `json:"full_name,omitempty"`
		AgeCategory     *string                      `json:"age_category,omitempty"`
		IsOfficiator    *bool                        `json:"is_officiator,omitempty"`
		GuardianName    *string                      `json:"guardian_name,omitempty"`
		GuardianPhone   *string                      `json:"guardian_phone,omitempty"`
		SkipsOrdinances *bool                        `json:"skips_ordinances,omitempty"`
		Ordinances      *[]models.OrdinanceSelection `json:"ordinances,omitempty" maxItems:"3"`
	}
}

func (h *RegistrationHandler) HandleUpdate(ctx context.Context, input *UpdateRegistrationRequest) (*RegistrationResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	reg, err := h.engine.Update(ctx, input.ID, booking.UpdateInput{
		ChapelID:        input.Body.ChapelID,
		Phone:           input.Body.Phone,
		FullName:        input.Body.FullName,
		AgeCategory:     input.Body.AgeCategory,
		IsOfficiator:    input.Body.IsOfficiator,
		GuardianName:    input.Body.GuardianName,
		GuardianPhone:   input.Body.GuardianPhone,
		SkipsOrdinances: input.Body.SkipsOrdinances,
		Ordinances:      input.Body.Ordinances,
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &RegistrationResponse{Body: toView(reg)}, nil
}

type CancelRegistrationRequest struct {
	auth.AuthInput
	ID   uint `path:"id"`
	Body struct {
		Reason string `json:"reason,omitempty" doc:"Optional cancellation reason"`
	}
}

func (h *RegistrationHandler) HandleCancel(ctx context.Context, input *CancelRegistrationRequest) (*RegistrationResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	reg, err := h.engine.Cancel(ctx, input.ID, input.Body.Reason)
	if err != nil {
		return nil, translateError(err)
	}

	var caravan models.Caravan
	if err := h.db.First(&caravan, reg.CaravanID).Error; err == nil {
		h.notify(func(n notifier.Notifier) error {
			return n.NotifyCancellation(caravan, *reg)
		})
	}

	return &RegistrationResponse{Body: toView(reg)}, nil
}

type PromoteRegistrationRequest struct {
	auth.AuthInput
	ID uint `path:"id"`
}

func (h *RegistrationHandler) HandlePromote(ctx context.Context, input *PromoteRegistrationRequest) (*RegistrationResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	reg, err := h.engine.Promote(ctx, input.ID)
	if err != nil {
		return nil, translateError(err)
	}

	var caravan models.Caravan
	if err := h.db.First(&caravan, reg.CaravanID).Error; err == nil {
		h.notify(func(n notifier.Notifier) error {
			return n.NotifyPromotion(caravan, *reg)
		})
	}

	return &RegistrationResponse{Body: toView(reg)}, nil
}

type MarkPaidRequest struct {
	auth.AuthInput
	ID uint `path:"id"`
}

func (h *RegistrationHandler) HandleMarkPaid(ctx context.Context, input *MarkPaidRequest) (*RegistrationResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	reg, err := h.engine.MarkPaymentPaid(ctx, input.ID)
	if err != nil {
		return nil, translateError(err)
	}
	return &RegistrationResponse{Body: toView(reg)}, nil
}

type ListRegistrationsRequest struct {
	auth.AuthInput
	CaravanID uint   `path:"caravanID"`
	Status    string `query:"status" enum:"ACTIVE,CANCELLED,WAITLIST," doc:"Filter by participation status"`
}

type ListRegistrationsResponse struct {
	Body []RegistrationView
}

func (h *RegistrationHandler) HandleList(ctx context.Context, input *ListRegistrationsRequest) (*ListRegistrationsResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	q := h.db.WithContext(ctx).Where("caravan_id = ?", input.CaravanID)
	if input.Status != "" {
		q = q.Where("participation_status = ?", input.Status)
	}

	var regs []models.Registration
	if err := q.Order("created_at asc").Find(&regs).Error; err != nil {
		return nil, translateError(err)
	}

	views := make([]RegistrationView, 0, len(regs))
	for i := range regs {
		views = append(views, toView(&regs[i]))
	}
	return &ListRegistrationsResponse{Body: views}, nil
}
