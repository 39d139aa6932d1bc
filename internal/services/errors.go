package services

import (
	"net/http"

	apierrors "petrodash/internal/errors"
)

// Service errors
var (
	// ErrIngestUnavailable is returned when no ingest backend is configured
	ErrIngestUnavailable = apierrors.New(http.StatusServiceUnavailable, "INGEST_UNAVAILABLE", "Document ingest is not configured")
)
