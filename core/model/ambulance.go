package model

// Ambulance is a fleet unit as returned by the fleet listing endpoint.
type Ambulance struct {
	ID         int64             `json:"id"`
	Plate      string            `json:"placa"`
	Category   AmbulanceCategory `json:"tipoAmbulancia"`
	OperatorID int64             `json:"id_operador_ambulancia"`
	Available  bool              `json:"disponibilidad"`
	Location   Location          `json:"ubicacion"`
}

// AmbulancePosition is the latest known position of a unit as pushed over
// the realtime channel. Arrival order implies freshness; the last message
// for a given id always wins.
type AmbulancePosition struct {
	AmbulanceID int64   `json:"id"`
	Lat         float64 `json:"latitud"`
	Lon         float64 `json:"longitud"`
}
