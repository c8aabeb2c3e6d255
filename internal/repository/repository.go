package repository

import "errors"

// Package repository contains data access layer abstractions.
// Implementations can live in subpackages (e.g., postgres, mongo) inside this directory.
// Missing rows surface as sql.ErrNoRows; mapping to domain errors is the service's job.

// ErrDuplicate is returned when a unique constraint rejects a write.
var ErrDuplicate = errors.New("duplicate key")
