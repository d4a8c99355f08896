//go:build !tinygo && cgo

package tubeaux

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/bonetube"
	"github.com/soypat/bonetube/skeleton"
	"github.com/soypat/glgl/v4.6-core/glgl"
)

// maxUIBones is the size of the bone matrix uniform array.
const maxUIBones = 128

func ui(mesh *bonetube.Mesh, root *skeleton.Bone, cfg UIConfig) error {
	if len(mesh.Bones) > maxUIBones {
		return fmt.Errorf("UI supports up to %d bones, mesh has %d", maxUIBones, len(mesh.Bones))
	} else if mesh.NumTriangles() == 0 {
		return errors.New("empty mesh")
	}
	bindInverse, err := skeleton.BindInverse(mesh.Bones)
	if err != nil {
		return err
	}
	bb := mesh.Bounds()
	center := bb.Center()
	diag := bb.Diagonal()

	window, term, err := startGLFW(cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	defer term()

	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   skinVertexSource,
		Fragment: shadeFragmentSource,
	})
	if err != nil {
		return err
	}
	prog.Bind()

	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	normals := mesh.ComputeVertexNormals()
	flatNormals := make([]float32, 0, 3*len(normals))
	for _, n := range normals {
		flatNormals = append(flatNormals, n.X, n.Y, n.Z)
	}
	skinIdx := mesh.FlatSkinIndices()
	fskinIdx := make([]float32, len(skinIdx))
	for i, idx := range skinIdx {
		fskinIdx[i] = float32(idx)
	}
	for _, attr := range []struct {
		name string
		size int32
		data []float32
	}{
		{name: "aPos", size: 3, data: mesh.FlatPositions()},
		{name: "aNormal", size: 3, data: flatNormals},
		{name: "aColor", size: 3, data: mesh.FlatColors()},
		{name: "aSkinIndex", size: 4, data: fskinIdx},
		{name: "aSkinWeight", size: 4, data: mesh.FlatSkinWeights()},
	} {
		err = vertexAttrib(&prog, attr.name, attr.size, attr.data)
		if err != nil {
			return err
		}
	}
	var ebo uint32
	gl.GenBuffers(1, &ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, 4*len(mesh.Indices), gl.Ptr(mesh.Indices), gl.STATIC_DRAW)

	bonesUniform, err := prog.UniformLocation("uBones\x00")
	if err != nil {
		return err
	}
	viewProjUniform, err := prog.UniformLocation("uViewProj\x00")
	if err != nil {
		return err
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)

	// Set up mouse input tracking
	minZoom := float64(diag * 0.01)
	maxZoom := float64(diag * 10)
	var (
		yaw              float64
		pitch            float64
		lastMouseX       float64
		lastMouseY       float64
		camDist          = float64(diag) * 1.5
		firstMouseMove   = true
		isMousePressed   = false
		yawSensitivity   = 0.005
		pitchSensitivity = 0.005
	)
	window.SetCursorPosCallback(func(w *glfw.Window, xpos float64, ypos float64) {
		if !isMousePressed {
			return
		}
		if firstMouseMove {
			lastMouseX = xpos
			lastMouseY = ypos
			firstMouseMove = false
		}
		yaw += (xpos - lastMouseX) * yawSensitivity
		pitch -= (ypos - lastMouseY) * pitchSensitivity // Invert y-axis
		maxPitch := math.Pi/2 - 0.01
		pitch = max(-maxPitch, min(maxPitch, pitch))
		lastMouseX = xpos
		lastMouseY = ypos
	})

	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		camDist -= yoff * (camDist*.1 + .01)
		camDist = max(minZoom, min(maxZoom, camDist))
	})

	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		if action == glfw.Press {
			isMousePressed = true
			firstMouseMove = true
			window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
		} else if action == glfw.Release {
			isMousePressed = false
			window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
		}
	})

	// Main render loop
	startTime := glfw.GetTime()
	ctx := cfg.Context
	target := mgl32.Vec3{center.X, center.Y, center.Z}
	var skin []mgl32.Mat4
	for !window.ShouldClose() {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		if cfg.Animate != nil {
			cfg.Animate(root, glfw.GetTime()-startTime)
		}
		skin, err = skeleton.SkinMatrices(skin[:0], mesh.Bones, bindInverse)
		if err != nil {
			return err
		}
		width, height := window.GetSize()
		gl.Viewport(0, 0, int32(width), int32(height))
		// Z is up in skeleton space.
		dir := mgl32.Vec3{
			float32(math.Cos(pitch) * math.Sin(yaw)),
			float32(math.Cos(pitch) * math.Cos(yaw)),
			float32(math.Sin(pitch)),
		}
		eye := target.Sub(dir.Mul(float32(camDist)))
		view := mgl32.LookAtV(eye, target, mgl32.Vec3{0, 0, 1})
		proj := mgl32.Perspective(mgl32.DegToRad(45), float32(width)/float32(height), float32(camDist)*0.01, float32(camDist)+2*diag)
		viewProj := proj.Mul4(view)

		gl.ClearColor(0.1, 0.1, 0.12, 1.0)
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
		prog.Bind()
		gl.UniformMatrix4fv(viewProjUniform, 1, false, &viewProj[0])
		gl.UniformMatrix4fv(bonesUniform, int32(len(skin)), false, &skin[0][0])
		gl.BindVertexArray(vao)
		gl.DrawElements(gl.TRIANGLES, int32(len(mesh.Indices)), gl.UNSIGNED_INT, gl.PtrOffset(0))
		window.SwapBuffers()

		time.Sleep(time.Second / 60)
		glfw.PollEvents()
	}
	return nil
}

func vertexAttrib(prog *glgl.Program, name string, size int32, data []float32) error {
	loc, err := prog.AttribLocation(name + "\x00")
	if err != nil {
		return err
	}
	var vbo uint32
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(data), gl.Ptr(data), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(loc)
	gl.VertexAttribPointer(loc, size, gl.FLOAT, false, 0, gl.PtrOffset(0))
	return nil
}

var skinVertexSource = `#version 460
in vec3 aPos;
in vec3 aNormal;
in vec3 aColor;
in vec4 aSkinIndex;
in vec4 aSkinWeight;

uniform mat4 uBones[` + strconv.Itoa(maxUIBones) + `];
uniform mat4 uViewProj;

out vec3 vNormal;
out vec3 vColor;

void main() {
	mat4 skin = aSkinWeight.x * uBones[int(aSkinIndex.x)] +
		aSkinWeight.y * uBones[int(aSkinIndex.y)] +
		aSkinWeight.z * uBones[int(aSkinIndex.z)] +
		aSkinWeight.w * uBones[int(aSkinIndex.w)];
	vNormal = mat3(skin) * aNormal;
	vColor = aColor;
	gl_Position = uViewProj * skin * vec4(aPos, 1.0);
}
` + "\x00"

const shadeFragmentSource = `#version 460
in vec3 vNormal;
in vec3 vColor;
out vec4 fragColor;

void main() {
	vec3 nor = normalize(vNormal);
	float dif = clamp(dot(nor, vec3(0.57703)), 0.0, 1.0);
	float amb = 0.5 + 0.5 * nor.z;
	vec3 col = vColor * (0.35 + 0.65*dif) + vec3(0.05, 0.06, 0.08) * amb;
	fragColor = vec4(sqrt(col), 1.0);
}
` + "\x00"

func startGLFW(width, height int) (window *glfw.Window, term func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.False)

	window, err = glfw.CreateWindow(width, height, "bonetube skeleton viewer", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	return window, glfw.Terminate, nil
}
