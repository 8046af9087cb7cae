// platform/glfw.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package platform

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/mmp/vacation/log"
)

// glfwPlatform implements the Platform interface using GLFW.
type glfwPlatform struct {
	window *glfw.Window
	config *Config

	inputCharacters        string
	anyEvents              bool
	lastMouseX, lastMouseY float64
	lg                     *log.Logger
}

// New returns a new instance of a Platform implemented with a window
// of the specified size open at the specified position on the screen. The
// window's OpenGL 2.1 context is made current on the calling thread.
func New(config *Config, lg *log.Logger) (Platform, error) {
	lg.Info("Starting GLFW initialization")
	err := glfw.Init()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize glfw: %w", err)
	}
	lg.Infof("GLFW: %s", glfw.GetVersionString())

	glfw.WindowHint(glfw.ContextVersionMajor, 2)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)

	vm := glfw.GetPrimaryMonitor().GetVideoMode()
	size, pos := initialWindowGeometry(*config, vm.Width, vm.Height)
	config.InitialWindowSize, config.InitialWindowPosition = size, pos

	// Start with an invisible window so that we can position it first
	glfw.WindowHint(glfw.Visible, 0)
	if config.EnableMSAA {
		glfw.WindowHint(glfw.Samples, 4)
	}
	title := config.Title
	if title == "" {
		title = "vacation"
	}

	window, err := glfw.CreateWindow(size[0], size[1], title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	window.SetPos(pos[0], pos[1])
	window.Show()
	window.MakeContextCurrent()

	platform := &glfwPlatform{
		config: config,
		window: window,
		lg:     lg,
	}
	platform.installCallbacks()
	platform.EnableVSync(config.EnableVSync)

	lg.Info("Finished GLFW initialization")

	return platform, nil
}

func (g *glfwPlatform) EnableVSync(sync bool) {
	if sync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}
}

func (g *glfwPlatform) Dispose() {
	g.window.Destroy()
	glfw.Terminate()
}

func (g *glfwPlatform) InputCharacters() string {
	return g.inputCharacters
}

func (g *glfwPlatform) ShouldStop() bool {
	return g.window.ShouldClose()
}

func (g *glfwPlatform) SetWindowTitle(text string) {
	g.window.SetTitle(text)
}

func (g *glfwPlatform) ProcessEvents() bool {
	g.inputCharacters = ""
	g.anyEvents = false

	glfw.PollEvents()

	if g.anyEvents {
		return true
	}

	x, y := g.window.GetCursorPos()
	if x != g.lastMouseX || y != g.lastMouseY {
		g.lastMouseX, g.lastMouseY = x, y
		return true
	}

	return false
}

func (g *glfwPlatform) WindowSize() [2]int {
	w, h := g.window.GetSize()
	return [2]int{w, h}
}

func (g *glfwPlatform) WindowPosition() [2]int {
	x, y := g.window.GetPos()
	return [2]int{x, y}
}

func (g *glfwPlatform) FramebufferSize() [2]int {
	w, h := g.window.GetFramebufferSize()
	return [2]int{w, h}
}

func (g *glfwPlatform) Time() float64 {
	return glfw.GetTime()
}

func (g *glfwPlatform) PostRender() {
	g.window.SwapBuffers()
}

func (g *glfwPlatform) installCallbacks() {
	g.window.SetKeyCallback(g.keyChange)
	g.window.SetCharCallback(g.charChange)
	g.window.SetFramebufferSizeCallback(g.framebufferSizeChange)
	g.window.SetMouseButtonCallback(func(*glfw.Window, glfw.MouseButton, glfw.Action, glfw.ModifierKey) {
		g.anyEvents = true
	})
}

func (g *glfwPlatform) keyChange(window *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	g.anyEvents = true
	if key == glfw.KeyEscape && action == glfw.Press {
		window.SetShouldClose(true)
	}
}

func (g *glfwPlatform) charChange(window *glfw.Window, char rune) {
	g.anyEvents = true
	g.inputCharacters = g.inputCharacters + string(char)
}

func (g *glfwPlatform) framebufferSizeChange(window *glfw.Window, width, height int) {
	g.anyEvents = true
	g.lg.Debugf("framebuffer resized to %dx%d", width, height)
}
