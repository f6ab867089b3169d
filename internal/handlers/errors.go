package handlers

import (
	"errors"
	"log"

	"github.com/danielgtaylor/huma/v2"
	"github.com/temple-caravans/caravan-api/internal/booking"
)

// translateError maps the booking error taxonomy onto HTTP statuses.
// Anything unrecognized is a persistence failure: logged and reported
// as a 500 without leaking details.
func translateError(err error) error {
	var ve booking.ValidationError
	var nf booking.NotFoundError
	var ce booking.CapacityExceededError
	var se booking.StateError
	var cf booking.ConflictError
	switch {
	case errors.As(err, &ve):
		return huma.Error400BadRequest(ve.Error())
	case errors.As(err, &nf):
		return huma.Error404NotFound(nf.Error())
	case errors.As(err, &ce):
		return huma.Error409Conflict(ce.Error())
	case errors.As(err, &se):
		return huma.Error409Conflict(se.Error())
	case errors.As(err, &cf):
		return huma.Error409Conflict(cf.Error())
	default:
		log.Printf("booking operation failed: %v", err)
		return huma.Error500InternalServerError("Failed to process registration")
	}
}
