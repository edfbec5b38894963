package components

import (
	gomath "math"

	"github.com/spaghettifunk/snowfall/engine/math"
)

/**
 * @brief An orbit camera looking at a target point, used to inspect a volume
 * from the outside. Rotation is pitch (X) and yaw (Y) in radians.
 */
type Camera struct {
	/** @brief The point the camera orbits around. */
	Target math.Vec3
	/** @brief Distance from the target. */
	Distance float32
	/** @brief Pitch and yaw. Use Pitch/Yaw so the limits are respected. */
	EulerRotation math.Vec3
	/** @brief Vertical field of view in radians. */
	FovY float32
	/** @brief Internal flag used to determine when the basis needs to be rebuilt. */
	IsDirty bool

	basis Basis
}

/** @brief World-space eye position and orientation of a camera. */
type Basis struct {
	Position math.Vec3
	Forward  math.Vec3
	Right    math.Vec3
	Up       math.Vec3
}

// DEFAULT_CAMERA_NAME names the camera that always exists.
const DEFAULT_CAMERA_NAME = "default"

const (
	pitchLimit  = float32(1.55334306) // 89 degrees
	minDistance = float32(0.1)
)

func NewCamera() *Camera {
	camera := &Camera{}
	camera.Reset()
	return camera
}

func (c *Camera) Reset() {
	c.Target = math.Vec3{}
	c.Distance = 2
	c.EulerRotation = math.Vec3{}
	c.FovY = float32(gomath.Pi / 3)
	c.IsDirty = true
}

func (c *Camera) SetTarget(target math.Vec3) {
	c.Target = target
	c.IsDirty = true
}

func (c *Camera) Zoom(amount float32) {
	c.Distance = max(c.Distance-amount, minDistance)
	c.IsDirty = true
}

func (c *Camera) Yaw(amount float32) {
	c.EulerRotation.Y += amount
	c.IsDirty = true
}

func (c *Camera) Pitch(amount float32) {
	// Clamp to avoid Gimbal lock.
	c.EulerRotation.X = math.Clamp(c.EulerRotation.X+amount, -pitchLimit, pitchLimit)
	c.IsDirty = true
}

func (c *Camera) Basis() Basis {
	if c.IsDirty {
		pitch := float64(c.EulerRotation.X)
		yaw := float64(c.EulerRotation.Y)
		toEye := math.Vec3{
			X: float32(gomath.Cos(pitch) * gomath.Sin(yaw)),
			Y: float32(gomath.Sin(pitch)),
			Z: float32(gomath.Cos(pitch) * gomath.Cos(yaw)),
		}
		forward := toEye.MulScalar(-1)
		right := forward.Cross(math.NewVec3Up()).Normalize()
		c.basis = Basis{
			Position: c.Target.Add(toEye.MulScalar(c.Distance)),
			Forward:  forward,
			Right:    right,
			Up:       right.Cross(forward),
		}
		c.IsDirty = false
	}
	return c.basis
}

// RayDirection returns the unit view ray through the normalized screen point
// (u, v), origin top-left.
func (c *Camera) RayDirection(u, v, aspect float32) math.Vec3 {
	b := c.Basis()
	tanHalf := float32(gomath.Tan(float64(c.FovY) / 2))
	x := (2*u - 1) * tanHalf * aspect
	y := (1 - 2*v) * tanHalf
	return b.Forward.Add(b.Right.MulScalar(x)).Add(b.Up.MulScalar(y)).Normalize()
}
