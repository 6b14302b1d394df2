package app

import "errors"

var (
	// ErrUnauthenticated indicates no valid caller identity.
	ErrUnauthenticated = errors.New("invalid user token")
	// ErrInvalidCredentials indicates a failed login attempt.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailAlreadyExists indicates a duplicate signup.
	ErrEmailAlreadyExists = errors.New("email already registered")
	// ErrEmailAndPasswordRequired indicates missing signup/login fields.
	ErrEmailAndPasswordRequired = errors.New("email and password are required")
	// ErrBookNotFound indicates a catalog lookup miss.
	ErrBookNotFound = errors.New("book not found")
	// ErrInvalidRating indicates a rating outside [1,5].
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)
