package model

// AmbulanceCategory classifies the level of care a unit can provide.
type AmbulanceCategory string

const (
	CategoryBasic       AmbulanceCategory = "BASIC"
	CategoryMedicalized AmbulanceCategory = "MEDICALIZED"
)

// Valid reports whether the category is one of the known values.
func (c AmbulanceCategory) Valid() bool {
	return c == CategoryBasic || c == CategoryMedicalized
}

// Priority is the triage priority assigned to an emergency.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Valid reports whether the priority is one of the canonical values.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// NormalizePriority maps legacy lowercase priority values onto the canonical
// set. "critical" folds into HIGH since the current scale has no fourth level.
func NormalizePriority(s string) (Priority, bool) {
	switch s {
	case "low":
		return PriorityLow, true
	case "medium":
		return PriorityMedium, true
	case "high", "critical":
		return PriorityHigh, true
	}
	p := Priority(s)
	return p, p.Valid()
}

// Status is the lifecycle state of an emergency.
type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusAssigned   Status = "ASSIGNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusCancelled  Status = "CANCELLED"
)

// Requester identifies the person who reported the emergency.
type Requester struct {
	ID       int64  `json:"id,omitempty"`
	Name     string `json:"nombre"`
	Document string `json:"documento,omitempty"`
}

// Location is a geographic point with an optional street address.
type Location struct {
	Lat     float64 `json:"latitud"`
	Lon     float64 `json:"longitud"`
	Address string  `json:"direccion,omitempty"`
}

// Emergency is a single reported incident requiring ambulance dispatch.
// The JSON tags match the wire format used by the backend and the push
// channel. CreatedAt is carried as an opaque string for display purposes.
type Emergency struct {
	ID             int64             `json:"id"`
	Requester      Requester         `json:"solicitante"`
	Location       Location          `json:"ubicacion"`
	Category       AmbulanceCategory `json:"tipoAmbulancia,omitempty"`
	Priority       Priority          `json:"nivelPrioridad,omitempty"`
	LegacyPriority string            `json:"prioridad,omitempty"`
	Status         Status            `json:"estado,omitempty"`
	Description    string            `json:"descripcion,omitempty"`
	CreatedAt      string            `json:"fechaHora,omitempty"`
	Room           string            `json:"room,omitempty"`
}

// Normalize folds the legacy lowercase priority field into the canonical one
// when only the legacy field was set.
func (e *Emergency) Normalize() {
	if e.Priority == "" && e.LegacyPriority != "" {
		if p, ok := NormalizePriority(e.LegacyPriority); ok {
			e.Priority = p
		}
	}
}

// EmergencyPatch is a partial emergency update. Nil fields are left
// untouched when the patch is applied.
type EmergencyPatch struct {
	Requester      *Requester         `json:"solicitante"`
	Location       *Location          `json:"ubicacion"`
	Category       *AmbulanceCategory `json:"tipoAmbulancia"`
	Priority       *Priority          `json:"nivelPrioridad"`
	LegacyPriority *string            `json:"prioridad"`
	Status         *Status            `json:"estado"`
	Description    *string            `json:"descripcion"`
	CreatedAt      *string            `json:"fechaHora"`
	Room           *string            `json:"room"`
}

// Apply merges the non-nil patch fields into the emergency.
func (e *Emergency) Apply(p EmergencyPatch) {
	if p.Requester != nil {
		e.Requester = *p.Requester
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Priority != nil {
		e.Priority = *p.Priority
	}
	if p.LegacyPriority != nil {
		e.LegacyPriority = *p.LegacyPriority
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.CreatedAt != nil {
		e.CreatedAt = *p.CreatedAt
	}
	if p.Room != nil {
		e.Room = *p.Room
	}
	e.Normalize()
}
