package settings

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/hackgods/appointment-booking/internal/apperr"
)

// Type describes how a setting's text value is interpreted.
type Type string

const (
	TypeNumber  Type = "number"
	TypeJSON    Type = "json"
	TypeString  Type = "string"
	TypeBoolean Type = "boolean"
)

const (
	KeyBusinessHoursStart    = "business_hours_start"
	KeyBusinessHoursEnd      = "business_hours_end"
	KeyBusinessDays          = "business_days"
	KeySlotDuration          = "slot_duration"
	KeyBookingAdvanceDays    = "booking_advance_days"
	KeyBookingMinNoticeHours = "booking_min_notice_hours"
)

var (
	ErrSettingNotFound = apperr.NotFound("setting_not_found", "setting not found")
	ErrInvalidValue    = &apperr.Error{Kind: apperr.KindValidation, Code: "invalid_setting_value", Message: "invalid value for setting type", Field: "value"}
)

// Setting is one row of the key/value configuration table.
type Setting struct {
	ID          int64     `json:"id"`
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Type        Type      `json:"type"`
	Description *string   `json:"description"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type UpdateInput struct {
	Value string `json:"value" validate:"required"`
}

// BusinessHours is the typed view of the scheduling settings.
type BusinessHours struct {
	StartHour      int   `json:"startHour"`
	EndHour        int   `json:"endHour"`
	BusinessDays   []int `json:"businessDays"` // 0=Sunday .. 6=Saturday
	SlotDuration   int   `json:"slotDuration"` // minutes
	AdvanceDays    int   `json:"advanceDays"`
	MinNoticeHours int   `json:"minNoticeHours"`
}

func DefaultBusinessHours() BusinessHours {
	return BusinessHours{
		StartHour:      8,
		EndHour:        18,
		BusinessDays:   []int{1, 2, 3, 4, 5},
		SlotDuration:   60,
		AdvanceDays:    30,
		MinNoticeHours: 24,
	}
}

// Defaults are the rows seeded into an empty settings table.
func Defaults() []Setting {
	desc := func(s string) *string { return &s }
	return []Setting{
		{Key: KeyBusinessHoursStart, Value: "8", Type: TypeNumber, Description: desc("Horário de início do expediente")},
		{Key: KeyBusinessHoursEnd, Value: "18", Type: TypeNumber, Description: desc("Horário de fim do expediente")},
		{Key: KeyBusinessDays, Value: "[1,2,3,4,5]", Type: TypeJSON, Description: desc("Dias da semana em que o escritório funciona (1=Segunda, 5=Sexta)")},
		{Key: KeySlotDuration, Value: "60", Type: TypeNumber, Description: desc("Duração padrão dos agendamentos em minutos")},
		{Key: KeyBookingAdvanceDays, Value: "30", Type: TypeNumber, Description: desc("Quantos dias à frente é possível agendar")},
		{Key: KeyBookingMinNoticeHours, Value: "24", Type: TypeNumber, Description: desc("Antecedência mínima em horas para agendar")},
	}
}

// IsBusinessDay reports whether t's weekday is open.
func (b BusinessHours) IsBusinessDay(t time.Time) bool {
	wd := int(t.Weekday())
	for _, d := range b.BusinessDays {
		if d == wd {
			return true
		}
	}
	return false
}

// FromSettings folds rows over the defaults. Missing keys keep their default.
func FromSettings(rows []Setting) (BusinessHours, error) {
	bh := DefaultBusinessHours()
	for _, s := range rows {
		var err error
		switch s.Key {
		case KeyBusinessHoursStart:
			bh.StartHour, err = strconv.Atoi(s.Value)
		case KeyBusinessHoursEnd:
			bh.EndHour, err = strconv.Atoi(s.Value)
		case KeySlotDuration:
			bh.SlotDuration, err = strconv.Atoi(s.Value)
		case KeyBookingAdvanceDays:
			bh.AdvanceDays, err = strconv.Atoi(s.Value)
		case KeyBookingMinNoticeHours:
			bh.MinNoticeHours, err = strconv.Atoi(s.Value)
		case KeyBusinessDays:
			var days []int
			err = json.Unmarshal([]byte(s.Value), &days)
			if err == nil {
				bh.BusinessDays = days
			}
		}
		if err != nil {
			return BusinessHours{}, fmt.Errorf("settings: parse %s=%q: %w", s.Key, s.Value, err)
		}
	}
	if err := bh.Validate(); err != nil {
		return BusinessHours{}, err
	}
	return bh, nil
}

// Validate checks the cross-field constraints of the scheduling settings.
func (b BusinessHours) Validate() error {
	if b.StartHour < 0 || b.StartHour > 23 {
		return apperr.Validation(KeyBusinessHoursStart, "must be between 0 and 23")
	}
	if b.EndHour < 1 || b.EndHour > 24 {
		return apperr.Validation(KeyBusinessHoursEnd, "must be between 1 and 24")
	}
	if b.StartHour >= b.EndHour {
		return apperr.Validation(KeyBusinessHoursEnd, "must be after business_hours_start")
	}
	for _, d := range b.BusinessDays {
		if d < 0 || d > 6 {
			return apperr.Validation(KeyBusinessDays, "days must be between 0 (Sunday) and 6 (Saturday)")
		}
	}
	if b.SlotDuration <= 0 {
		return apperr.Validation(KeySlotDuration, "must be positive")
	}
	if b.AdvanceDays < 0 {
		return apperr.Validation(KeyBookingAdvanceDays, "must not be negative")
	}
	if b.MinNoticeHours < 0 {
		return apperr.Validation(KeyBookingMinNoticeHours, "must not be negative")
	}
	return nil
}

// checkType reports whether value parses as t.
func checkType(t Type, value string) error {
	switch t {
	case TypeNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return ErrInvalidValue
		}
	case TypeBoolean:
		if _, err := strconv.ParseBool(value); err != nil {
			return ErrInvalidValue
		}
	case TypeJSON:
		if !json.Valid([]byte(value)) {
			return ErrInvalidValue
		}
	}
	return nil
}
