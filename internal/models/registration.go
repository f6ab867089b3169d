package models

import (
	"database/sql/driver"
	"time"

	"github.com/temple-caravans/caravan-api/internal/capacity"
	"gorm.io/gorm"
)

type ParticipationStatus string

const (
	ParticipationActive    ParticipationStatus = "ACTIVE"
	ParticipationCancelled ParticipationStatus = "CANCELLED"
	ParticipationWaitlist  ParticipationStatus = "WAITLIST"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentPaid      PaymentStatus = "PAID"
	PaymentFree      PaymentStatus = "FREE"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

// OrdinanceSelection is one booked (ordinance, slot) pair on a
// registration. IsPersonal marks work brought by the participant
// rather than assigned by the temple.
type OrdinanceSelection struct {
	OrdinanceID uint   `json:"ordinance_id"`
	Slot        string `json:"slot"`
	IsPersonal  bool   `json:"is_personal"`
}

type OrdinanceSelections []OrdinanceSelection

func (s OrdinanceSelections) Value() (driver.Value, error) {
	if s == nil {
		s = OrdinanceSelections{}
	}
	return jsonValue(s)
}

func (s *OrdinanceSelections) Scan(src interface{}) error {
	return jsonScan(s, src)
}

// Contains reports whether the list holds the (ordinanceID, slot)
// pair, ignoring IsPersonal.
func (s OrdinanceSelections) Contains(ordinanceID uint, slot string) bool {
	for _, sel := range s {
		if sel.OrdinanceID == ordinanceID && sel.Slot == slot {
			return true
		}
	}
	return false
}

// RegistrationFields are the participant-editable fields, embedded in
// both the registration and its history snapshots.
type RegistrationFields struct {
	ChapelID            uint                `json:"chapel_id"`
	BusID               uint                `json:"bus_id"`
	Phone               string              `json:"phone"`
	FullName            string              `json:"full_name"`
	AgeCategory         string              `json:"age_category"`
	Gender              capacity.Gender     `json:"gender"`
	IsOfficiator        bool                `json:"is_officiator"`
	GuardianName        string              `json:"guardian_name,omitempty"`
	GuardianPhone       string              `json:"guardian_phone,omitempty"`
	Ordinances          OrdinanceSelections `json:"ordinances" gorm:"type:text"`
	SkipsOrdinances     bool                `json:"skips_ordinances"`
	IsFirstTimeConvert  bool                `json:"is_first_time_convert"`
	PaymentStatus       PaymentStatus       `json:"payment_status"`
	ParticipationStatus ParticipationStatus `json:"participation_status"`
	CancelReason        string              `json:"cancel_reason,omitempty"`
	CancelledAt         *time.Time          `json:"cancelled_at,omitempty"`
	PaymentReportedAt   *time.Time          `json:"payment_reported_at,omitempty"`
}

// Registration is one participant's booking within one caravan.
type Registration struct {
	gorm.Model
	CaravanID          uint `json:"caravan_id" gorm:"index"`
	RegistrationFields `gorm:"embedded"`

	PrivacyPolicyAccepted bool       `json:"privacy_policy_accepted"`
	GDPRUUID              string     `json:"gdpr_uuid" gorm:"uniqueIndex"`
	ConsentWithdrawnAt    *time.Time `json:"consent_withdrawn_at,omitempty"`
}
