package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/events"
	"ridehail/internal/logging"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationRideRequested  NotificationType = "RIDE_REQUESTED"
	NotificationDriverAssigned NotificationType = "DRIVER_ASSIGNED"
	NotificationTripStarted    NotificationType = "TRIP_STARTED"
	NotificationTripCompleted  NotificationType = "TRIP_COMPLETED"
	NotificationRideCancelled  NotificationType = "RIDE_CANCELLED"
	NotificationRideExpired    NotificationType = "RIDE_EXPIRED"
	NotificationRideRated      NotificationType = "RIDE_RATED"
)

// Notification represents a notification to be sent.
type Notification struct {
	Type        NotificationType
	RecipientID string // account or driver ID
	Title       string
	Message     string
	Event       events.Event
}

// NotificationService logs user-facing notifications and publishes the
// matching lifecycle event. Delivery is best effort and never fails the
// operation that triggered it.
type NotificationService struct {
	logger    *slog.Logger
	publisher events.Publisher
	now       func() time.Time
}

// NewNotificationService creates a new NotificationService. A nil publisher
// drops events.
func NewNotificationService(logger *slog.Logger, publisher events.Publisher) *NotificationService {
	if logger == nil {
		logger = logging.Discard()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &NotificationService{logger: logger, publisher: publisher, now: time.Now}
}

// NotifyRideRequested announces a new request to drivers.
func (s *NotificationService) NotifyRideRequested(ctx context.Context, ride *domain.Ride) error {
	return s.send(ctx, Notification{
		Type:    NotificationRideRequested,
		Title:   "New Ride Request",
		Message: fmt.Sprintf("New %s ride from %s, fare %d", ride.Category, ride.Pickup.Address, ride.Fare.Total),
		Event:   events.FromRide(events.RideRequested, ride, s.now()),
	})
}

// NotifyDriverAssigned notifies the rider that a driver has accepted.
func (s *NotificationService) NotifyDriverAssigned(ctx context.Context, ride *domain.Ride, driver *domain.Driver) error {
	return s.send(ctx, Notification{
		Type:        NotificationDriverAssigned,
		RecipientID: ride.RiderID,
		Title:       "Driver Assigned",
		Message: fmt.Sprintf("%s %s (%s) is on the way",
			driver.Vehicle.Color, driver.Vehicle.Model, driver.Vehicle.LicensePlate),
		Event: events.FromRide(events.RideAccepted, ride, s.now()),
	})
}

// NotifyTripStarted notifies the rider that the trip has started.
func (s *NotificationService) NotifyTripStarted(ctx context.Context, ride *domain.Ride) error {
	return s.send(ctx, Notification{
		Type:        NotificationTripStarted,
		RecipientID: ride.RiderID,
		Title:       "Trip Started",
		Message:     "Your trip has started. Enjoy your ride!",
		Event:       events.FromRide(events.RideStarted, ride, s.now()),
	})
}

// NotifyTripCompleted notifies the rider that the trip has ended.
func (s *NotificationService) NotifyTripCompleted(ctx context.Context, ride *domain.Ride) error {
	return s.send(ctx, Notification{
		Type:        NotificationTripCompleted,
		RecipientID: ride.RiderID,
		Title:       "Trip Completed",
		Message:     fmt.Sprintf("Your trip has ended. Total fare: %d", ride.Fare.Total),
		Event:       events.FromRide(events.RideCompleted, ride, s.now()),
	})
}

// NotifyRideCancelled notifies the assigned driver, if any, that the rider
// cancelled.
func (s *NotificationService) NotifyRideCancelled(ctx context.Context, ride *domain.Ride) error {
	return s.send(ctx, Notification{
		Type:        NotificationRideCancelled,
		RecipientID: ride.DriverID,
		Title:       "Ride Cancelled",
		Message:     "The rider has cancelled the ride",
		Event:       events.FromRide(events.RideCancelled, ride, s.now()),
	})
}

// NotifyRidesExpired reports an expiry sweep that cancelled count rides.
func (s *NotificationService) NotifyRidesExpired(ctx context.Context, count int64) error {
	return s.send(ctx, Notification{
		Type:    NotificationRideExpired,
		Title:   "Ride Requests Expired",
		Message: fmt.Sprintf("%d ride requests expired without a driver", count),
		Event: events.Event{
			Type:       events.RideExpired,
			Reason:     ExpiryReason,
			Count:      count,
			OccurredAt: s.now(),
		},
	})
}

// NotifyRideRated tells the driver about a new rating.
func (s *NotificationService) NotifyRideRated(ctx context.Context, ride *domain.Ride) error {
	return s.send(ctx, Notification{
		Type:        NotificationRideRated,
		RecipientID: ride.DriverID,
		Title:       "New Rating",
		Message:     fmt.Sprintf("You received a %d star rating", ride.Rating),
		Event:       events.FromRide(events.RideRated, ride, s.now()),
	})
}

func (s *NotificationService) send(ctx context.Context, n Notification) error {
	s.logger.InfoContext(ctx, "notification",
		"type", n.Type,
		"recipient", n.RecipientID,
		"title", n.Title,
		"message", n.Message,
		"ride_id", n.Event.RideID,
	)

	if err := s.publisher.Publish(ctx, n.Event); err != nil {
		s.logger.WarnContext(ctx, "publish event failed", "event", n.Event.Type, "ride_id", n.Event.RideID, "error", err)
		return err
	}
	return nil
}
