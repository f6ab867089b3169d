package handlers

import (
	"context"

	"github.com/temple-caravans/caravan-api/internal/booking"
	"github.com/temple-caravans/caravan-api/internal/capacity"
)

// AvailabilityHandler serves the read-side queries the registration
// form polls. Results are snapshots; the booking engine re-checks
// inside its own transaction.
type AvailabilityHandler struct {
	engine *booking.Engine
}

func NewAvailabilityHandler(engine *booking.Engine) *AvailabilityHandler {
	return &AvailabilityHandler{engine: engine}
}

type AvailabilityRequest struct {
	CaravanID   uint   `path:"caravanID"`
	OrdinanceID uint   `query:"ordinance_id" required:"true"`
	Slot        string `query:"slot" required:"true"`
	Gender      string `query:"gender" enum:"M,F," doc:"Empty means shared/mixed"`
}

type AvailabilityResponse struct {
	Body capacity.Availability
}

func (h *AvailabilityHandler) HandleAvailability(ctx context.Context, input *AvailabilityRequest) (*AvailabilityResponse, error) {
	avail, err := h.engine.Availability(ctx, input.CaravanID, input.OrdinanceID, input.Slot, capacity.Gender(input.Gender))
	if err != nil {
		return nil, translateError(err)
	}
	return &AvailabilityResponse{Body: avail}, nil
}

type AvailabilityBatchRequest struct {
	CaravanID uint   `path:"caravanID"`
	Gender    string `query:"gender" enum:"M,F," doc:"Empty means shared/mixed"`
}

type AvailabilityBatchResponse struct {
	// ordinance id -> slot -> availability
	Body map[string]map[string]capacity.Availability
}

func (h *AvailabilityHandler) HandleAvailabilityBatch(ctx context.Context, input *AvailabilityBatchRequest) (*AvailabilityBatchResponse, error) {
	all, err := h.engine.AvailabilityAll(ctx, input.CaravanID, capacity.Gender(input.Gender))
	if err != nil {
		return nil, translateError(err)
	}
	return &AvailabilityBatchResponse{Body: all}, nil
}

type BusOccupancyRequest struct {
	CaravanID uint `path:"caravanID"`
	BusID     uint `path:"busID"`
}

type BusOccupancyResponse struct {
	Body struct {
		Active int64 `json:"active"`
	}
}

func (h *AvailabilityHandler) HandleBusOccupancy(ctx context.Context, input *BusOccupancyRequest) (*BusOccupancyResponse, error) {
	n, err := h.engine.CountActiveByBus(ctx, input.CaravanID, input.BusID)
	if err != nil {
		return nil, translateError(err)
	}
	res := &BusOccupancyResponse{}
	res.Body.Active = n
	return res, nil
}
