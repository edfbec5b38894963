package core

import (
	"errors"
)

var (
	ErrUnknown = errors.New("unknown")

	// Pools and caches.
	ErrPoolUninitialized = errors.New("pool is not initialized")
	ErrPoolExhausted     = errors.New("pool capacity exhausted")
	ErrInvalidCapacity   = errors.New("invalid pool capacity")
	ErrInvalidHandle     = errors.New("invalid or stale handle")

	// Device and resources.
	ErrNoDevice             = errors.New("no graphics device")
	ErrInvalidDescriptor    = errors.New("malformed resource descriptor")
	ErrImmutableResource    = errors.New("resource is immutable")
	ErrTextureDataOverrun   = errors.New("texture initial data exceeds declared byte count")
	ErrUnsupportedFormat    = errors.New("unsupported pixel format")
	ErrUnsupportedOperation = errors.New("operation not supported by device")
	ErrResourceState        = errors.New("resource is in the wrong state")

	// Content.
	ErrAssetNotFound   = errors.New("asset not found")
	ErrNoLoader        = errors.New("no loader registered for asset")
	ErrAssetType       = errors.New("asset has unexpected type")
	ErrMissingMeta     = errors.New("missing .meta sidecar")
	ErrMalformedMeta   = errors.New("malformed .meta sidecar")
	ErrMalformedVolume = errors.New("raw volume size does not match .meta")

	// Volume pipeline.
	ErrNotInitialized   = errors.New("component is not initialized")
	ErrVolumeNotLoaded  = errors.New("source volume is not loaded")
	ErrMalformedTFFile  = errors.New("malformed transfer function file")
	ErrNodeOutOfRange   = errors.New("transfer node index out of range")
	ErrTooFewNodes      = errors.New("transfer function needs at least two nodes")
	ErrInvalidCellCount = errors.New("voxels per cell must be positive")
)
