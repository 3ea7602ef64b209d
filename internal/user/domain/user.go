package domain

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the calendar date format used by signup forms and the directory API.
const DateLayout = "2006-01-02"

// User is a registered member of the directory.
type User struct {
	ID                string
	IdentityUID       string
	PhoneNumber       string
	Role              Role
	Name              string
	RecipientType     RecipientType
	SupportedDistrict SupportedDistrict
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Role string

const (
	RoleUser     Role = "user"
	RoleAdmin    Role = "admin"
	RoleRepairer Role = "repairer"
	RoleGuardian Role = "guardian"
)

// RecipientType is the welfare category of the user.
type RecipientType string

const (
	RecipientGeneral      RecipientType = "일반"
	RecipientBasic        RecipientType = "수급"
	RecipientNearPoverty  RecipientType = "차상위"
	RecipientUnregistered RecipientType = "미등록"
)

// SupportedDistrict is the district whose subsidy covers repairs.
type SupportedDistrict string

// DistrictOutsideSeoul is the catch-all district.
const DistrictOutsideSeoul SupportedDistrict = "서울 외"

// DefaultDistrict is preselected on the signup form.
const DefaultDistrict SupportedDistrict = "성동구"

var recipientTypes = []RecipientType{RecipientGeneral, RecipientBasic, RecipientNearPoverty, RecipientUnregistered}

var supportedDistricts = []SupportedDistrict{
	"강남구", "강동구", "강북구", "강서구", "관악구", "광진구", "구로구", "금천구", "노원구",
	"도봉구", "동대문구", "동작구", "마포구", "서대문구", "서초구", "성동구", "성북구", "송파구",
	"양천구", "영등포구", "용산구", "은평구", "종로구", "중구", "중랑구", DistrictOutsideSeoul,
}

// RecipientTypes returns the selectable recipient types in display order.
func RecipientTypes() []RecipientType {
	out := make([]RecipientType, len(recipientTypes))
	copy(out, recipientTypes)
	return out
}

// SupportedDistricts returns the selectable districts in display order.
func SupportedDistricts() []SupportedDistrict {
	out := make([]SupportedDistrict, len(supportedDistricts))
	copy(out, supportedDistricts)
	return out
}

func (r RecipientType) Valid() bool {
	for _, v := range recipientTypes {
		if v == r {
			return true
		}
	}
	return false
}

func (d SupportedDistrict) Valid() bool {
	for _, v := range supportedDistricts {
		if v == d {
			return true
		}
	}
	return false
}

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleRepairer, RoleGuardian:
		return true
	}
	return false
}

// Vehicle is the mobility device registered with a user.
type Vehicle struct {
	ID             string
	UserID         string
	Model          string
	PurchasedAt    time.Time
	ManufacturedAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Profile is the signup payload: the user's details plus the vehicle being registered.
type Profile struct {
	Name              string            `json:"name"`
	Model             string            `json:"model"`
	PurchasedAt       time.Time         `json:"purchasedAt"`
	ManufacturedAt    time.Time         `json:"manufacturedAt"`
	RecipientType     RecipientType     `json:"recipientType"`
	SupportedDistrict SupportedDistrict `json:"supportedDistrict"`
	VehicleID         string            `json:"vehicleId,omitempty"`
}

var (
	ErrNameRequired      = errors.New("name is required")
	ErrModelRequired     = errors.New("model is required")
	ErrPurchasedAt       = errors.New("purchase date is required")
	ErrManufacturedAt    = errors.New("manufacture date is required")
	ErrRecipientType     = errors.New("unknown recipient type")
	ErrSupportedDistrict = errors.New("unknown supported district")
	ErrVehicleIDRequired = errors.New("vehicle id is required")
)

// Validate checks the profile for persistence. Empty recipient type and district take their defaults.
// Returns an error describing the first validation failure.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(p.Model) == "" {
		return ErrModelRequired
	}
	if p.PurchasedAt.IsZero() {
		return ErrPurchasedAt
	}
	if p.ManufacturedAt.IsZero() {
		return ErrManufacturedAt
	}
	if p.RecipientType == "" {
		p.RecipientType = RecipientGeneral
	}
	if !p.RecipientType.Valid() {
		return ErrRecipientType
	}
	if p.SupportedDistrict == "" {
		p.SupportedDistrict = DefaultDistrict
	}
	if !p.SupportedDistrict.Valid() {
		return ErrSupportedDistrict
	}
	if p.VehicleID == "" {
		return ErrVehicleIDRequired
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD calendar date. ok is false for anything else, including impossible dates.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate renders t as YYYY-MM-DD, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
