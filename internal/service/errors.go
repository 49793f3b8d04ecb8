package service

import "errors"

// Validation errors. Rejected before any state change.
var (
	// ErrInvalidRideID is returned when ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidAccountID is returned when the caller's account ID is empty.
	ErrInvalidAccountID = errors.New("invalid account id")

	// ErrInvalidPickupLocation is returned when pickup coordinates are invalid.
	ErrInvalidPickupLocation = errors.New("invalid pickup location")

	// ErrInvalidDropoffLocation is returned when dropoff coordinates are invalid.
	ErrInvalidDropoffLocation = errors.New("invalid dropoff location")

	// ErrInvalidLocation is returned when location coordinates are invalid.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrMissingAddress is returned when a pickup or dropoff has no address.
	ErrMissingAddress = errors.New("pickup and dropoff addresses are required")

	// ErrSamePickupDropoff is returned when pickup and dropoff are the same point.
	ErrSamePickupDropoff = errors.New("pickup and dropoff must be different")

	// ErrInvalidCategory is returned for an unknown ride category.
	ErrInvalidCategory = errors.New("invalid ride category")

	// ErrInvalidPaymentMethod is returned when payment method is invalid.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrMissingTripEstimate is returned when distance or duration is missing.
	ErrMissingTripEstimate = errors.New("distance and duration are required")

	// ErrTripEstimateOutOfRange is returned for a distance or duration above the priced bounds.
	ErrTripEstimateOutOfRange = errors.New("distance or duration out of range")

	// ErrInvalidAddOn is returned for a negative, non-finite or oversized add-on.
	ErrInvalidAddOn = errors.New("invalid price add-on")

	// ErrAddOnDecrease is returned when a rider tries to lower the add-on.
	ErrAddOnDecrease = errors.New("price add-on can only be increased")

	// ErrInvalidPickupCodeFormat is returned when a pickup code is not 4 digits.
	ErrInvalidPickupCodeFormat = errors.New("pickup code must be exactly 4 digits")

	// ErrInvalidRating is returned for a rating outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrInvalidStatus is returned when a driver requests an unsupported target status.
	ErrInvalidStatus = errors.New("invalid ride status")

	// ErrMissingName is returned when registration has no name.
	ErrMissingName = errors.New("name is required")

	// ErrInvalidEmail is returned for a malformed email.
	ErrInvalidEmail = errors.New("invalid email")

	// ErrInvalidPhone is returned when a phone number is not 10 digits.
	ErrInvalidPhone = errors.New("phone number must be 10 digits")

	// ErrWeakPassword is returned for a password shorter than 6 characters.
	ErrWeakPassword = errors.New("password must be at least 6 characters")

	// ErrInvalidRole is returned for an unknown account role.
	ErrInvalidRole = errors.New("invalid role")

	// ErrMissingVehicle is returned when a driver registers without vehicle or license details.
	ErrMissingVehicle = errors.New("vehicle details and license number are required")
)

// Authentication and authorization errors.
var (
	// ErrInvalidCredentials is returned when login fails.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrNotRideOwner is returned when a rider acts on another rider's ride.
	ErrNotRideOwner = errors.New("ride belongs to another rider")

	// ErrDriverNotAssignedToRide is returned when driver is not assigned to the ride.
	ErrDriverNotAssignedToRide = errors.New("driver not assigned to this ride")

	// ErrRideAccessDenied is returned when the caller may not view the ride.
	ErrRideAccessDenied = errors.New("not allowed to view this ride")
)

// State conflicts. Expected, and recoverable by choosing another action.
var (
	// ErrRiderHasActiveRide is returned when a rider books while holding an open ride.
	ErrRiderHasActiveRide = errors.New("rider already has an active ride")

	// ErrRideNotOpen is returned when the add-on is changed after the request closed.
	ErrRideNotOpen = errors.New("ride request is no longer open")

	// ErrRideExpired is returned when the request window has passed.
	ErrRideExpired = errors.New("ride request expired")

	// ErrRideAlreadyClaimed is returned when another driver won the ride.
	ErrRideAlreadyClaimed = errors.New("ride claimed by another driver")

	// ErrRideNotAvailable is returned when the ride is no longer requested.
	ErrRideNotAvailable = errors.New("ride is no longer available")

	// ErrDriverUnavailable is returned when an unavailable driver tries to accept.
	ErrDriverUnavailable = errors.New("driver is not available")

	// ErrDriverHasActiveRide is returned when driver already holds an active ride.
	ErrDriverHasActiveRide = errors.New("driver already has an active ride")

	// ErrCategoryNotServed is returned when the driver's vehicle cannot serve the ride's category.
	ErrCategoryNotServed = errors.New("vehicle does not serve this ride category")

	// ErrOutsideDispatchRadius is returned when the pickup is beyond the ride's dispatch radius.
	ErrOutsideDispatchRadius = errors.New("pickup is outside the dispatch radius")

	// ErrRideNotAccepted is returned when pickup is verified on a ride that is not accepted.
	ErrRideNotAccepted = errors.New("ride is not in accepted state")

	// ErrPickupCodeMismatch is returned when the submitted pickup code is wrong.
	ErrPickupCodeMismatch = errors.New("pickup code does not match")

	// ErrPickupNotVerified is returned when a trip starts before the rider was verified.
	ErrPickupNotVerified = errors.New("verify passenger before starting")

	// ErrRideAlreadyCancelled is returned when trying to cancel an already cancelled ride.
	ErrRideAlreadyCancelled = errors.New("ride already cancelled")

	// ErrRideCannotBeCancelled is returned when ride is in a state that cannot be cancelled.
	ErrRideCannotBeCancelled = errors.New("ride cannot be cancelled in current state")

	// ErrRideNotActive is returned when a live location is sent for a finished ride.
	ErrRideNotActive = errors.New("ride is not active")

	// ErrRideNotCompleted is returned when rating a ride that has not completed.
	ErrRideNotCompleted = errors.New("only completed rides can be rated")

	// ErrRideAlreadyRated is returned when a ride already carries a rating.
	ErrRideAlreadyRated = errors.New("ride already rated")

	// ErrConcurrentUpdate is returned when the ride changed between read and write.
	ErrConcurrentUpdate = errors.New("ride was modified concurrently, reload and retry")
)
