package catalog

import "time"

const (
	MinDurationMinutes     = 15
	MaxDurationMinutes     = 480
	DefaultDurationMinutes = 60
)

// Service is a bookable offering.
type Service struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	Duration     int       `json:"duration"`
	Price        *int      `json:"price"`
	Active       bool      `json:"active"`
	DisplayOrder int       `json:"displayOrder"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Length is the service duration as a time.Duration.
func (s Service) Length() time.Duration {
	d := s.Duration
	if d <= 0 {
		d = DefaultDurationMinutes
	}
	return time.Duration(d) * time.Minute
}

type CreateInput struct {
	Name         string  `json:"name" validate:"required,min=1"`
	Description  *string `json:"description"`
	Duration     int     `json:"duration" validate:"min=15,max=480"`
	Price        *int    `json:"price" validate:"omitempty,min=0"`
	DisplayOrder int     `json:"displayOrder"`
}

// UpdateInput carries a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Name         *string `json:"name" validate:"omitempty,min=1"`
	Description  *string `json:"description"`
	Duration     *int    `json:"duration" validate:"omitempty,min=15,max=480"`
	Price        *int    `json:"price" validate:"omitempty,min=0"`
	Active       *bool   `json:"active"`
	DisplayOrder *int    `json:"displayOrder"`
}

// DefaultServices is the starter catalog inserted by cmd/seed into an empty database.
func DefaultServices() []CreateInput {
	desc := func(s string) *string { return &s }
	return []CreateInput{
		{Name: "Declaração de Imposto de Renda", Description: desc("Declaração completa de IRPF"), Duration: 60, DisplayOrder: 1},
		{Name: "Abertura de Empresa", Description: desc("Abertura de empresa com todos os documentos"), Duration: 90, DisplayOrder: 2},
		{Name: "Consultoria Fiscal", Description: desc("Consultoria personalizada em questões fiscais"), Duration: 60, DisplayOrder: 3},
		{Name: "Contabilidade Mensal", Description: desc("Serviços contábeis mensais"), Duration: 45, DisplayOrder: 4},
	}
}
