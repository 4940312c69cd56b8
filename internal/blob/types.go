// Package blob re-exports the destination abstractions and opens the configured
// backend. Packages outside the blob tree depend on blob.Store, never on the
// infra implementations.
package blob

import (
	"civicdesk/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

var (
	// ErrExists reports a key collision on a create-only Put.
	ErrExists = core.ErrExists
	// ErrNotFound reports a missing key.
	ErrNotFound = core.ErrNotFound
)
