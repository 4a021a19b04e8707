// Package services defines the business logic for lens orders, grouped
// requirements, fulfilment, and record reconciliation. This file centralizes
// common service-level error values so that they can be consistently returned
// by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

var (
	// ErrRequirementNotFound indicates that no grouped requirement exists for
	// the given grouping key.
	ErrRequirementNotFound = errors.New("requirement not found")

	// ErrRecordNotFound indicates that the requested fulfilment record does
	// not exist.
	ErrRecordNotFound = errors.New("record not found")

	// ErrUserNotFound indicates that the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidSpec is returned when a lens specification fails catalog
	// validation. It wraps the underlying validation detail.
	ErrInvalidSpec = errors.New("invalid lens specification")

	// ErrInvalidQuantity is returned when a quantity is zero, negative, or
	// not a number.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrInvalidPrice is returned when a price is negative or not a number.
	ErrInvalidPrice = errors.New("price must be non-negative")

	// ErrMissingVendor is returned when a fulfilment has no vendor name.
	ErrMissingVendor = errors.New("vendor name is required")

	// ErrMissingClient is returned when an order has no client name.
	ErrMissingClient = errors.New("client name is required")

	// ErrExceedsRemaining is returned when a fulfilment quantity exceeds the
	// open remainder of a requirement beyond the comparison epsilon.
	ErrExceedsRemaining = errors.New("quantity exceeds remaining requirement")

	// ErrExceedsRequirement is returned when an edited partial quantity would
	// push the allotted total past the total required.
	ErrExceedsRequirement = errors.New("quantity exceeds total requirement")

	// ErrQuantityImmutable is returned when an edit attempts to change the
	// fulfilled quantity of a completed record.
	ErrQuantityImmutable = errors.New("completed quantity cannot change")

	// ErrAllocationMismatch is returned when explicit client assignments do
	// not sum to the partial record's fulfilled quantity.
	ErrAllocationMismatch = errors.New("assignments must sum to fulfilled quantity")

	// ErrAllocationOverdraw is returned when an assignment exceeds what the
	// client still has open on the grouped requirement.
	ErrAllocationOverdraw = errors.New("assignment exceeds client order")

	// ErrConflict is returned when a concurrent writer changed the
	// requirement between read and write. Callers should re-read and retry.
	ErrConflict = errors.New("concurrent modification, retry")

	// ErrDuplicateUser is returned when creating a user whose ID already
	// exists.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrInvalidRole is returned when a user role is outside the allowed set.
	ErrInvalidRole = errors.New("role must be Admin or Employee")

	// ErrInvalidUser is returned when a user is created without an ID or name.
	ErrInvalidUser = errors.New("user id and name are required")
)
