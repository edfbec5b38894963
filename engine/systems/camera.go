package systems

import (
	"fmt"

	"github.com/spaghettifunk/snowfall/engine/core"
	"github.com/spaghettifunk/snowfall/engine/renderer/components"
)

type cameraLookup struct {
	camera         *components.Camera
	referenceCount int
}

/**
 * @brief Hands out named orbit cameras, reference counted. The default camera
 * always exists and is never released.
 */
type CameraSystem struct {
	maxCameraCount int
	lookup         map[string]*cameraLookup
	// A default, non-registered camera that always exists as a fallback.
	defaultCamera *components.Camera
}

func NewCameraSystem(maxCameraCount int) (*CameraSystem, error) {
	if maxCameraCount <= 0 {
		err := fmt.Errorf("camera system with %d cameras: %w", maxCameraCount, core.ErrInvalidCapacity)
		core.LogError(err.Error())
		return nil, err
	}
	return &CameraSystem{
		maxCameraCount: maxCameraCount,
		lookup:         make(map[string]*cameraLookup, maxCameraCount),
		defaultCamera:  components.NewCamera(),
	}, nil
}

/**
 * @brief Acquires a camera by name, creating it on first use. Internal
 * reference counter is incremented.
 */
func (cs *CameraSystem) Acquire(name string) (*components.Camera, error) {
	if name == components.DEFAULT_CAMERA_NAME {
		return cs.defaultCamera, nil
	}
	l, ok := cs.lookup[name]
	if !ok {
		if len(cs.lookup) >= cs.maxCameraCount {
			err := fmt.Errorf("camera %q: %d cameras in use: %w", name, len(cs.lookup), core.ErrPoolExhausted)
			core.LogError(err.Error())
			return nil, err
		}
		core.LogDebug("Creating new camera named '%s'...", name)
		l = &cameraLookup{camera: components.NewCamera()}
		cs.lookup[name] = l
	}
	l.referenceCount++
	return l.camera, nil
}

/**
 * @brief Releases a camera with the given name. When the counter reaches 0
 * the camera is dropped and the name can be reused.
 */
func (cs *CameraSystem) Release(name string) {
	if name == components.DEFAULT_CAMERA_NAME {
		core.LogDebug("Cannot release default camera. Nothing was done.")
		return
	}
	l, ok := cs.lookup[name]
	if !ok {
		core.LogWarn("camera %q is not acquired. Nothing was done.", name)
		return
	}
	l.referenceCount--
	if l.referenceCount < 1 {
		delete(cs.lookup, name)
	}
}

func (cs *CameraSystem) GetDefault() *components.Camera {
	return cs.defaultCamera
}

// Count is the number of named cameras in use.
func (cs *CameraSystem) Count() int {
	return len(cs.lookup)
}
