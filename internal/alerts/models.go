package alerts

import (
	"time"

	"github.com/google/uuid"
)

// Alert kinds recognized by the gateway.
const (
	KindPanic    = "panic"
	KindMedical  = "medical"
	KindLocation = "location"
	KindCustom   = "custom"
)

func ValidKind(kind string) bool {
	switch kind {
	case KindPanic, KindMedical, KindLocation, KindCustom:
		return true
	}
	return false
}

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Alert is an emergency alert raised by a circle member. Alerts are never
// deleted; a resolve transition sets Resolved, ResolvedBy and ResolvedAt and
// appends the resolver to ResponderIDs.
type Alert struct {
	ID         uuid.UUID
	SenderID   uuid.UUID
	SenderName string
	Kind       string
	Message    string
	Location   *GeoPoint
	CreatedAt  time.Time

	Resolved     bool
	ResolvedBy   *uuid.UUID
	ResolvedAt   *time.Time
	ResponderIDs []uuid.UUID
}
