// Package booking is the transactional core of the caravan program:
// it owns every mutation of registrations and of the per-caravan
// ordinance capacity counts, and the read-side occupancy and
// availability queries the forms are built on.
package booking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/temple-caravans/caravan-api/internal/capacity"
	"github.com/temple-caravans/caravan-api/internal/models"
	"gorm.io/gorm"
)

const defaultMaxAttempts = 5

// Engine runs every booking operation inside one transaction that
// reads the registration and its caravan, validates, and writes both.
// The caravan row carries a version counter; counts are committed with
// a compare-and-swap on it, and a lost swap rolls the transaction back
// and retries from the read so the capacity check always sees fresh
// counts.
type Engine struct {
	db          *gorm.DB
	maxAttempts int
}

func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db, maxAttempts: defaultMaxAttempts}
}

// WithMaxAttempts overrides the conflict retry budget.
func (e *Engine) WithMaxAttempts(n int) *Engine {
	if n > 0 {
		e.maxAttempts = n
	}
	return e
}

var errVersionConflict = errors.New("caravan version conflict")

func isRetryable(err error) bool {
	if errors.Is(err, errVersionConflict) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "busy")
}

// runWithRetry executes fn as one transaction, retrying from the read
// step on version conflicts and sqlite write contention. Exhausting
// the budget surfaces as ConflictError.
func (e *Engine) runWithRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		err := e.db.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 5 * time.Millisecond)
	}
	return ConflictError{Attempts: e.maxAttempts}
}

// commitCounts writes the new counts against the version the caravan
// was read at. Zero rows affected means another transaction committed
// in between; the caller's transaction is aborted and retried.
func commitCounts(tx *gorm.DB, caravan *models.Caravan, counts capacity.CellMap) error {
	res := tx.Model(&models.Caravan{}).
		Where("id = ? AND version = ?", caravan.ID, caravan.Version).
		Updates(map[string]interface{}{
			"ordinance_counts": counts,
			"version":          caravan.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errVersionConflict
	}
	return nil
}

func (e *Engine) countActive(tx *gorm.DB, caravanID, busID uint) (int64, error) {
	var n int64
	err := tx.Model(&models.Registration{}).
		Where("caravan_id = ? AND bus_id = ? AND participation_status = ?",
			caravanID, busID, models.ParticipationActive).
		Count(&n).Error
	return n, err
}

func (e *Engine) ordinanceName(tx *gorm.DB, id uint) string {
	var o models.Ordinance
	if err := tx.First(&o, id).Error; err != nil {
		return "ordinance"
	}
	return o.Name
}

// validateSelections checks the requested (ordinance, slot) pairs
// against the caravan's limits snapshot. Duplicates and unconfigured
// keys are rejected. When claiming, each pair is also checked for room
// against counts and then incremented into it, so a batch of
// selections is validated as a whole.
func (e *Engine) validateSelections(tx *gorm.DB, caravan *models.Caravan, sels []models.OrdinanceSelection, g capacity.Gender, claiming bool, counts capacity.CellMap) error {
	seen := make(map[models.OrdinanceSelection]bool, len(sels))
	for _, sel := range sels {
		key := models.OrdinanceSelection{OrdinanceID: sel.OrdinanceID, Slot: sel.Slot}
		if seen[key] {
			return ValidationError{Field: "ordinances", Msg: "duplicate ordinance slot selection"}
		}
		seen[key] = true

		limit, ok := caravan.OrdinanceLimits.Cell(sel.OrdinanceID, sel.Slot)
		if !ok {
			return ValidationError{Field: "ordinances", Msg: "ordinance slot is not bookable on this caravan"}
		}
		if limit.Gendered && g != capacity.Male && g != capacity.Female {
			return ValidationError{Field: "gender", Msg: "required for gender-limited ordinance sessions"}
		}
		if !claiming {
			continue
		}
		used := 0
		if c, ok := counts.Cell(sel.OrdinanceID, sel.Slot); ok {
			used = c.For(g)
		}
		if used >= limit.For(g) {
			return CapacityExceededError{Resource: e.ordinanceName(tx, sel.OrdinanceID), Slot: sel.Slot}
		}
		counts.Increment(sel.OrdinanceID, sel.Slot, g, limit)
	}
	return nil
}

func writeHistory(tx *gorm.DB, r *models.Registration, by string) error {
	h := models.RegistrationHistory{
		RegistrationID:     r.ID,
		CaravanID:          r.CaravanID,
		ChangedBy:          by,
		RegistrationFields: r.RegistrationFields,
	}
	return tx.Create(&h).Error
}

func newGDPRUUID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func loadCaravan(tx *gorm.DB, id uint) (*models.Caravan, error) {
	var caravan models.Caravan
	if err := tx.First(&caravan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError{Resource: "caravan", ID: id}
		}
		return nil, err
	}
	return &caravan, nil
}

// CreateInput carries everything the registration form submits.
type CreateInput struct {
	CaravanID             uint
	ChapelID              uint
	BusID                 uint
	Phone                 string
	FullName              string
	AgeCategory           string
	Gender                capacity.Gender
	IsOfficiator          bool
	GuardianName          string
	GuardianPhone         string
	Ordinances            []models.OrdinanceSelection
	SkipsOrdinances       bool
	IsFirstTimeConvert    bool
	PrivacyPolicyAccepted bool
}

// Create books one participant onto a caravan. The bus-occupancy read
// that decides ACTIVE vs WAITLIST happens inside the same transaction
// as the write, and the caravan version is bumped even when no
// ordinance counts change, so two creates racing for the last seat
// serialize on the compare-and-swap. Waitlisted registrations keep
// their ordinance selections but claim no ordinance capacity until
// promotion.
func (e *Engine) Create(ctx context.Context, in CreateInput) (*models.Registration, error) {
	if in.CaravanID == 0 {
		return nil, ValidationError{Field: "caravan_id", Msg: "required"}
	}
	if strings.TrimSpace(in.Phone) == "" {
		return nil, ValidationError{Field: "phone", Msg: "required"}
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, ValidationError{Field: "full_name", Msg: "required"}
	}
	if in.BusID == 0 {
		return nil, ValidationError{Field: "bus_id", Msg: "required"}
	}
	if len(in.Ordinances) > 3 {
		return nil, ValidationError{Field: "ordinances", Msg: "at most 3 ordinance selections"}
	}

	var reg *models.Registration
	err := e.runWithRetry(ctx, func(tx *gorm.DB) error {
		caravan, err := loadCaravan(tx, in.CaravanID)
		if err != nil {
			return err
		}

		now := time.Now()
		if caravan.RegistrationOpensAt != nil && now.Before(*caravan.RegistrationOpensAt) {
			return ValidationError{Field: "caravan_id", Msg: "registration is not open yet"}
		}
		if caravan.RegistrationClosesAt != nil && now.After(*caravan.RegistrationClosesAt) {
			return ValidationError{Field: "caravan_id", Msg: "registration is closed"}
		}

		var bus models.Bus
		if err := tx.First(&bus, in.BusID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError{Resource: "bus", ID: in.BusID}
			}
			return err
		}
		if len(caravan.BusIDs) > 0 && !caravan.BusIDs.Contains(in.BusID) {
			return ValidationError{Field: "bus_id", Msg: "bus is not assigned to this caravan"}
		}

		var samePhone int64
		if err := tx.Model(&models.Registration{}).
			Where("caravan_id = ? AND phone = ? AND participation_status <> ?",
				in.CaravanID, in.Phone, models.ParticipationCancelled).
			Count(&samePhone).Error; err != nil {
			return err
		}
		if samePhone > 0 {
			return ValidationError{Field: "phone", Msg: "already registered for this caravan"}
		}

		active, err := e.countActive(tx, in.CaravanID, in.BusID)
		if err != nil {
			return err
		}
		status := decideStatus(active, bus.Capacity)

		counts := caravan.OrdinanceCounts.Clone()
		claiming := status == models.ParticipationActive && !in.SkipsOrdinances
		if err := e.validateSelections(tx, caravan, in.Ordinances, in.Gender, claiming, counts); err != nil {
			return err
		}

		payment := models.PaymentPending
		if in.IsFirstTimeConvert {
			payment = models.PaymentFree
		}

		gdprUUID, err := newGDPRUUID()
		if err != nil {
			return err
		}

		r := models.Registration{
			CaravanID: in.CaravanID,
			RegistrationFields: models.RegistrationFields{
				ChapelID:            in.ChapelID,
				BusID:               in.BusID,
				Phone:               strings.TrimSpace(in.Phone),
				FullName:            strings.TrimSpace(in.FullName),
				AgeCategory:         in.AgeCategory,
				Gender:              in.Gender,
				IsOfficiator:        in.IsOfficiator,
				GuardianName:        in.GuardianName,
				GuardianPhone:       in.GuardianPhone,
				Ordinances:          in.Ordinances,
				SkipsOrdinances:     in.SkipsOrdinances,
				IsFirstTimeConvert:  in.IsFirstTimeConvert,
				PaymentStatus:       payment,
				ParticipationStatus: status,
			},
			PrivacyPolicyAccepted: in.PrivacyPolicyAccepted,
			GDPRUUID:              gdprUUID,
		}
		if err := tx.Create(&r).Error; err != nil {
			return err
		}
		if err := writeHistory(tx, &r, "create"); err != nil {
			return err
		}
		if err := commitCounts(tx, caravan, counts); err != nil {
			return err
		}
		reg = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// UpdateInput carries the editable fields; nil pointers leave a field
// unchanged. Gender and bus are deliberately absent: both feed the
// capacity bookkeeping, and the program handles those changes as a
// cancel plus a new registration.
type UpdateInput struct {
	ChapelID        *uint
	Phone           *string
	FullName        *string
	AgeCategory     *string
	IsOfficiator    *bool
	GuardianName    *string
	GuardianPhone   *string
	SkipsOrdinances *bool
	Ordinances      *[]models.OrdinanceSelection
}

// Update edits a registration; an ordinance list change is diffed by
// (ordinanceID, slot) and the caravan counts are reconciled in the
// same transaction. Removed pairs release capacity first, then added
// pairs are validated against the current counts, so swapping within
// a full slot works.
func (e *Engine) Update(ctx context.Context, id uint, in UpdateInput) (*models.Registration, error) {
	if in.Ordinances != nil && len(*in.Ordinances) > 3 {
		return nil, ValidationError{Field: "ordinances", Msg: "at most 3 ordinance selections"}
	}

	var reg *models.Registration
	err := e.runWithRetry(ctx, func(tx *gorm.DB) error {
		var r models.Registration
		if err := tx.First(&r, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError{Resource: "registration", ID: id}
			}
			return err
		}
		if r.ParticipationStatus == models.ParticipationCancelled {
			return StateError{Msg: "registration is cancelled"}
		}

		if in.ChapelID != nil {
			r.ChapelID = *in.ChapelID
		}
		if in.Phone != nil {
			r.Phone = strings.TrimSpace(*in.Phone)
		}
		if in.FullName != nil {
			r.FullName = strings.TrimSpace(*in.FullName)
		}
		if in.AgeCategory != nil {
			r.AgeCategory = *in.AgeCategory
		}
		if in.IsOfficiator != nil {
			r.IsOfficiator = *in.IsOfficiator
		}
		if in.GuardianName != nil {
			r.GuardianName = *in.GuardianName
		}
		if in.GuardianPhone != nil {
			r.GuardianPhone = *in.GuardianPhone
		}
		// Capacity is held only by ACTIVE registrations that do not
		// skip ordinances. Evaluate the predicate before and after the
		// edit so a SkipsOrdinances flip reconciles counts the same
		// way an ordinance change does.
		heldBefore := r.ParticipationStatus == models.ParticipationActive && !r.SkipsOrdinances
		if in.SkipsOrdinances != nil {
			r.SkipsOrdinances = *in.SkipsOrdinances
		}
		heldAfter := r.ParticipationStatus == models.ParticipationActive && !r.SkipsOrdinances

		countsChanged := false
		var caravan *models.Caravan
		var counts capacity.CellMap
		newSels := r.Ordinances
		if in.Ordinances != nil {
			newSels = *in.Ordinances
		}
		if in.Ordinances != nil || heldBefore != heldAfter {
			var err error
			caravan, err = loadCaravan(tx, r.CaravanID)
			if err != nil {
				return err
			}
			counts = caravan.OrdinanceCounts.Clone()

			// Existence and dedupe check over the whole new list;
			// capacity is only re-validated for pairs not already held.
			if err := e.validateSelections(tx, caravan, newSels, r.Gender, false, nil); err != nil {
				return err
			}
			if heldBefore {
				for _, old := range r.Ordinances {
					if heldAfter && models.OrdinanceSelections(newSels).Contains(old.OrdinanceID, old.Slot) {
						continue
					}
					counts.Decrement(old.OrdinanceID, old.Slot, r.Gender)
				}
			}
			if heldAfter {
				var toClaim []models.OrdinanceSelection
				for _, sel := range newSels {
					if heldBefore && r.Ordinances.Contains(sel.OrdinanceID, sel.Slot) {
						continue
					}
					toClaim = append(toClaim, sel)
				}
				if err := e.validateSelections(tx, caravan, toClaim, r.Gender, true, counts); err != nil {
					return err
				}
			}
			r.Ordinances = newSels
			countsChanged = heldBefore || heldAfter
		}

		if err := tx.Save(&r).Error; err != nil {
			return err
		}
		if err := writeHistory(tx, &r, "update"); err != nil {
			return err
		}
		if countsChanged {
			if err := commitCounts(tx, caravan, counts); err != nil {
				return err
			}
		}
		reg = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// Cancel moves a registration to its terminal state and releases any
// ordinance capacity it held. Idempotent: cancelling a cancelled
// registration returns it unchanged.
func (e *Engine) Cancel(ctx context.Context, id uint, reason string) (*models.Registration, error) {
	var reg *models.Registration
	err := e.runWithRetry(ctx, func(tx *gorm.DB) error {
		var r models.Registration
		if err := tx.First(&r, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError{Resource: "registration", ID: id}
			}
			return err
		}
		if r.ParticipationStatus == models.ParticipationCancelled {
			reg = &r
			return nil
		}

		heldCapacity := r.ParticipationStatus == models.ParticipationActive &&
			len(r.Ordinances) > 0 && !r.SkipsOrdinances

		now := time.Now()
		r.ParticipationStatus = models.ParticipationCancelled
		r.CancelledAt = &now
		r.CancelReason = reason
		if r.PaymentStatus == models.PaymentPending {
			r.PaymentStatus = models.PaymentCancelled
		}

		if err := tx.Save(&r).Error; err != nil {
			return err
		}
		if err := writeHistory(tx, &r, "cancel"); err != nil {
			return err
		}

		if heldCapacity {
			caravan, err := loadCaravan(tx, r.CaravanID)
			if err != nil {
				var nf NotFoundError
				if errors.As(err, &nf) {
					// Caravan already deleted by an admin: nothing to
					// release.
					reg = &r
					return nil
				}
				return err
			}
			counts := caravan.OrdinanceCounts.Clone()
			for _, sel := range r.Ordinances {
				counts.Decrement(sel.OrdinanceID, sel.Slot, r.Gender)
			}
			if err := commitCounts(tx, caravan, counts); err != nil {
				return err
			}
		}
		reg = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// Promote moves a waitlisted registration to ACTIVE once a bus seat
// is free. Ordinance selections chosen at signup are re-validated
// against current availability before their capacity is claimed; a
// slot taken in the meantime fails the promotion rather than silently
// over-booking.
func (e *Engine) Promote(ctx context.Context, id uint) (*models.Registration, error) {
	var reg *models.Registration
	err := e.runWithRetry(ctx, func(tx *gorm.DB) error {
		var r models.Registration
		if err := tx.First(&r, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError{Resource: "registration", ID: id}
			}
			return err
		}
		if r.ParticipationStatus != models.ParticipationWaitlist {
			return StateError{Msg: "only waitlisted registrations can be promoted"}
		}

		caravan, err := loadCaravan(tx, r.CaravanID)
		if err != nil {
			return err
		}
		var bus models.Bus
		if err := tx.First(&bus, r.BusID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError{Resource: "bus", ID: r.BusID}
			}
			return err
		}

		active, err := e.countActive(tx, r.CaravanID, r.BusID)
		if err != nil {
			return err
		}
		if active >= int64(bus.Capacity) {
			return CapacityExceededError{Resource: "bus " + bus.Name}
		}

		counts := caravan.OrdinanceCounts.Clone()
		claiming := !r.SkipsOrdinances
		if err := e.validateSelections(tx, caravan, r.Ordinances, r.Gender, claiming, counts); err != nil {
			return err
		}

		r.ParticipationStatus = models.ParticipationActive
		if err := tx.Save(&r).Error; err != nil {
			return err
		}
		if err := writeHistory(tx, &r, "promote"); err != nil {
			return err
		}
		if err := commitCounts(tx, caravan, counts); err != nil {
			return err
		}
		reg = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// MarkPaymentPaid records a user-reported payment. No capacity
// interaction; safe to call repeatedly, last write wins.
func (e *Engine) MarkPaymentPaid(ctx context.Context, id uint) (*models.Registration, error) {
	var reg *models.Registration
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r models.Registration
		if err := tx.First(&r, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError{Resource: "registration", ID: id}
			}
			return err
		}
		now := time.Now()
		r.PaymentStatus = models.PaymentPaid
		r.PaymentReportedAt = &now
		if err := tx.Save(&r).Error; err != nil {
			return err
		}
		if err := writeHistory(tx, &r, "payment"); err != nil {
			return err
		}
		reg = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// Erase hard-deletes a registration and its history for a GDPR
// erasure request. Capacity held by an active registration is
// released first, so erasure cannot strand booked counts.
func (e *Engine) Erase(ctx context.Context, id uint) error {
	return e.runWithRetry(ctx, func(tx *gorm.DB) error {
		var r models.Registration
		if err := tx.First(&r, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError{Resource: "registration", ID: id}
			}
			return err
		}

		if r.ParticipationStatus == models.ParticipationActive &&
			len(r.Ordinances) > 0 && !r.SkipsOrdinances {
			caravan, err := loadCaravan(tx, r.CaravanID)
			if err == nil {
				counts := caravan.OrdinanceCounts.Clone()
				for _, sel := range r.Ordinances {
					counts.Decrement(sel.OrdinanceID, sel.Slot, r.Gender)
				}
				if err := commitCounts(tx, caravan, counts); err != nil {
					return err
				}
			} else {
				var nf NotFoundError
				if !errors.As(err, &nf) {
					return err
				}
			}
		}

		if err := tx.Unscoped().Where("registration_id = ?", r.ID).
			Delete(&models.RegistrationHistory{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&r).Error
	})
}

// Availability answers "how many slots remain" for one (ordinance,
// slot, gender). A missing caravan or an unconfigured key fails
// closed to {0, 0}.
func (e *Engine) Availability(ctx context.Context, caravanID, ordinanceID uint, slot string, g capacity.Gender) (capacity.Availability, error) {
	var caravan models.Caravan
	if err := e.db.WithContext(ctx).First(&caravan, caravanID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return capacity.Availability{}, nil
		}
		return capacity.Availability{}, err
	}
	return capacity.Resolve(caravan.OrdinanceLimits, caravan.OrdinanceCounts, ordinanceID, slot, g), nil
}

// AvailabilityAll resolves every configured slot for one gender, for
// the registration form. Results are an eventually-consistent
// snapshot; the authoritative check happens again inside Create.
func (e *Engine) AvailabilityAll(ctx context.Context, caravanID uint, g capacity.Gender) (map[string]map[string]capacity.Availability, error) {
	var caravan models.Caravan
	if err := e.db.WithContext(ctx).First(&caravan, caravanID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return map[string]map[string]capacity.Availability{}, nil
		}
		return nil, err
	}
	return capacity.ResolveAll(caravan.OrdinanceLimits, caravan.OrdinanceCounts, g), nil
}

// CountActiveByBus is the read-side occupancy query for display. It
// is recomputed on demand and never cached.
func (e *Engine) CountActiveByBus(ctx context.Context, caravanID, busID uint) (int64, error) {
	return e.countActive(e.db.WithContext(ctx), caravanID, busID)
}

// Waitlist lists a caravan's waitlisted registrations in creation
// order. The order is for display only; admins may promote any entry.
func (e *Engine) Waitlist(ctx context.Context, caravanID uint) ([]models.Registration, error) {
	var regs []models.Registration
	err := e.db.WithContext(ctx).
		Where("caravan_id = ? AND participation_status = ?", caravanID, models.ParticipationWaitlist).
		Order("created_at asc").
		Find(&regs).Error
	return regs, err
}
