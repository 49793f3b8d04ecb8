// Package events publishes ride lifecycle events to downstream consumers.
package events

import (
	"context"
	"time"

	"ridehail/internal/domain"
)

// Type names a lifecycle event.
type Type string

const (
	RideRequested Type = "ride.requested"
	RideAccepted  Type = "ride.accepted"
	RideStarted   Type = "ride.started"
	RideCompleted Type = "ride.completed"
	RideCancelled Type = "ride.cancelled"
	RideExpired   Type = "ride.expired"
	RideRated     Type = "ride.rated"
)

// Event is the message body written for every lifecycle change. It never
// carries the pickup code.
type Event struct {
	Type       Type              `json:"type"`
	RideID     string            `json:"ride_id"`
	RiderID    string            `json:"rider_id,omitempty"`
	DriverID   string            `json:"driver_id,omitempty"`
	Status     domain.RideStatus `json:"status,omitempty"`
	Category   domain.Category   `json:"category,omitempty"`
	Fare       int64             `json:"fare,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Count      int64             `json:"count,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// FromRide fills the ride fields of an event.
func FromRide(t Type, ride *domain.Ride, at time.Time) Event {
	return Event{
		Type:       t,
		RideID:     ride.ID,
		RiderID:    ride.RiderID,
		DriverID:   ride.DriverID,
		Status:     ride.Status,
		Category:   ride.Category,
		Fare:       ride.Fare.Total,
		Reason:     ride.CancelReason,
		OccurredAt: at,
	}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
