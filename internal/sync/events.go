package sync

import (
	"time"

	"resenas/pkg/models"
)

const (
	EventCreated = "resena.created"
	EventUpdated = "resena.updated"
	EventDeleted = "resena.deleted"
)

type ReviewEvent struct {
	Type   string         `json:"type"`
	ID     int64          `json:"id"`
	Review *models.Review `json:"resena,omitempty"` // nil on delete
	At     time.Time      `json:"at"`
}
