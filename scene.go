package framecomp

import (
	"time"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// CubeVertexCount is the number of vertices the scene vertex shader
// expands into a cube: 6 faces of 2 triangles.
const CubeVertexCount = 36

// Camera depth range shared by the projection and the depth visualization.
const (
	NearPlane float32 = 0.1
	FarPlane  float32 = 20.0
)

// ScenePush is the vertex push constant block of the scene pipeline.
type ScenePush struct {
	MVP mgl32.Mat4
}

// VisualizePush is the fragment push constant block of the depth
// visualization pipeline.
type VisualizePush struct {
	Near float32
	Far  float32
}

const (
	scenePushSize     = uint32(unsafe.Sizeof(ScenePush{}))
	visualizePushSize = uint32(unsafe.Sizeof(VisualizePush{}))
)

// VulkanProjection converts an OpenGL style projection matrix to Vulkan
// clip space: Y points down and depth is in [0, 1] instead of [-1, 1].
func VulkanProjection(proj mgl32.Mat4) mgl32.Mat4 {
	fix := mgl32.Mat4{
		1, 0, 0, 0,
		0, -1, 0, 0,
		0, 0, 0.5, 0,
		0, 0, 0.5, 1,
	}
	return fix.Mul4(proj)
}

// Scene is the spinning cube. Its state is the elapsed time only.
type Scene struct {
	// Speed is the rotation rate in radians per second.
	Speed float32
	start time.Time
}

// NewScene starts the animation clock at now.
func NewScene(now time.Time) *Scene {
	return &Scene{Speed: 0.8, start: now}
}

// Push returns the push constants for a frame drawn at now into an
// output with the given aspect ratio.
func (s *Scene) Push(now time.Time, aspect float32) ScenePush {
	angle := float32(now.Sub(s.start).Seconds()) * s.Speed
	return ScenePush{MVP: SceneMVP(angle, aspect)}
}

// SceneMVP returns the model-view-projection for the cube rotated by
// angle radians about a tilted axis.
func SceneMVP(angle, aspect float32) mgl32.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	proj := VulkanProjection(mgl32.Perspective(mgl32.DegToRad(45), aspect, NearPlane, FarPlane))
	view := mgl32.LookAtV(mgl32.Vec3{0, 1.5, 4}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	model := mgl32.HomogRotate3D(angle, mgl32.Vec3{0.3, 1, 0.2}.Normalize())
	return proj.Mul4(view).Mul4(model)
}
