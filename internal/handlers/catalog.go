package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/temple-caravans/caravan-api/internal/auth"
	"github.com/temple-caravans/caravan-api/internal/models"
	"gorm.io/gorm"
)

// CatalogHandler covers the supporting CRUD the booking engine reads
// from: buses, chapels and the ordinance catalog.
type CatalogHandler struct {
	db          *gorm.DB
	authHandler *auth.AuthHandler
}

func NewCatalogHandler(db *gorm.DB, authHandler *auth.AuthHandler) *CatalogHandler {
	return &CatalogHandler{db: db, authHandler: authHandler}
}

type CreateBusRequest struct {
	auth.AuthInput
	Body struct {
		Name     string `json:"name" required:"true"`
		Capacity int    `json:"capacity" required:"true" minimum:"1" doc:"Seat count"`
	}
}

type BusResponse struct {
	Body models.Bus
}

func (h *CatalogHandler) HandleCreateBus(ctx context.Context, input *CreateBusRequest) (*BusResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}
	bus := models.Bus{Name: input.Body.Name, Capacity: input.Body.Capacity}
	if err := h.db.WithContext(ctx).Create(&bus).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to create bus")
	}
	return &BusResponse{Body: bus}, nil
}

type ListBusesRequest struct{}

type ListBusesResponse struct {
	Body []models.Bus
}

func (h *CatalogHandler) HandleListBuses(ctx context.Context, input *ListBusesRequest) (*ListBusesResponse, error) {
	var buses []models.Bus
	if err := h.db.WithContext(ctx).Find(&buses).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to list buses")
	}
	return &ListBusesResponse{Body: buses}, nil
}

type CreateChapelRequest struct {
	auth.AuthInput
	Body struct {
		Name string `json:"name" required:"true"`
		City string `json:"city"`
	}
}

type ChapelResponse struct {
	Body models.Chapel
}

func (h *CatalogHandler) HandleCreateChapel(ctx context.Context, input *CreateChapelRequest) (*ChapelResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}
	chapel := models.Chapel{Name: input.Body.Name, City: input.Body.City}
	if err := h.db.WithContext(ctx).Create(&chapel).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to create chapel")
	}
	return &ChapelResponse{Body: chapel}, nil
}

type ListChapelsRequest struct{}

type ListChapelsResponse struct {
	Body []models.Chapel
}

func (h *CatalogHandler) HandleListChapels(ctx context.Context, input *ListChapelsRequest) (*ListChapelsResponse, error) {
	var chapels []models.Chapel
	if err := h.db.WithContext(ctx).Find(&chapels).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to list chapels")
	}
	return &ListChapelsResponse{Body: chapels}, nil
}

type CreateOrdinanceRequest struct {
	auth.AuthInput
	Body struct {
		Name     string                    `json:"name" required:"true" doc:"e.g. Baptistry"`
		Sessions []models.OrdinanceSession `json:"sessions" doc:"Bookable time slots with capacity, optionally per gender"`
	}
}

type OrdinanceResponse struct {
	Body models.Ordinance
}

func (h *CatalogHandler) HandleCreateOrdinance(ctx context.Context, input *CreateOrdinanceRequest) (*OrdinanceResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}
	ordinance := models.Ordinance{Name: input.Body.Name, Sessions: input.Body.Sessions}
	if err := h.db.WithContext(ctx).Create(&ordinance).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to create ordinance")
	}
	return &OrdinanceResponse{Body: ordinance}, nil
}

type ListOrdinancesRequest struct{}

type ListOrdinancesResponse struct {
	Body []models.Ordinance
}

func (h *CatalogHandler) HandleListOrdinances(ctx context.Context, input *ListOrdinancesRequest) (*ListOrdinancesResponse, error) {
	var ordinances []models.Ordinance
	if err := h.db.WithContext(ctx).Find(&ordinances).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to list ordinances")
	}
	return &ListOrdinancesResponse{Body: ordinances}, nil
}
