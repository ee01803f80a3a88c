package domain

import "time"

// AlertKind distinguishes creation alerts from the running daily one.
type AlertKind string

const (
	AlertKindNueva               AlertKind = "NUEVA"
	AlertKindActualizacionDiaria AlertKind = "ACTUALIZACION_DIARIA"
)

// AlertLevel is the criticality derived from days remaining until breach.
type AlertLevel string

const (
	AlertLevelMedio   AlertLevel = "MEDIO"
	AlertLevelAlto    AlertLevel = "ALTO"
	AlertLevelCritico AlertLevel = "CRITICO"
)

// AlertStatus enumerates read/lifecycle states of an alert.
type AlertStatus string

const (
	AlertStatusNueva     AlertStatus = "NUEVA"
	AlertStatusLeida     AlertStatus = "LEIDA"
	AlertStatusEliminada AlertStatus = "ELIMINADA"
)

// Alert is a notification record tied to one request. At most one running
// alert of kind ACTUALIZACION_DIARIA exists per open request; it is updated
// in place rather than duplicated.
type Alert struct {
	ID        string
	RequestID string
	Kind      AlertKind
	Level     AlertLevel
	Message   string
	Status    AlertStatus
	EmailSent bool
	CreatedAt time.Time
	ReadAt    *time.Time
	UpdatedAt time.Time
}
