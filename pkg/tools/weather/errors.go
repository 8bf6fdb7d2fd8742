package weather

import (
	"net/http"

	"github.com/parleyhq/parley/pkg/errx"
)

var (
	errorRegistry = errx.NewRegistry("WEATHER")

	ErrAPIRequest = errorRegistry.Register(
		"API_REQUEST_FAILED",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Failed to make request to Open-Meteo API",
	)

	ErrAPIResponse = errorRegistry.Register(
		"API_RESPONSE_INVALID",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Invalid response from Open-Meteo API",
	)

	ErrInvalidInput = errorRegistry.Register(
		"INVALID_INPUT",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Invalid weather tool input",
	)

	ErrLocationNotFound = errorRegistry.Register(
		"LOCATION_NOT_FOUND",
		errx.TypeNotFound,
		http.StatusNotFound,
		"Location not found",
	)
)
