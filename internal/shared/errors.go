package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrAuthFailed = fmt.Errorf("authentication failed")

	// API and catalog errors
	ErrAPIRequest     = fmt.Errorf("API request failed")
	ErrSongNotFound   = fmt.Errorf("song not found on server")
	ErrAmbiguousMatch = fmt.Errorf("ambiguous match")

	// Library errors
	ErrLibraryNotFound = fmt.Errorf("library database not found")
	ErrItemNotFound    = fmt.Errorf("item not found in library")

	// Input validation errors
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
