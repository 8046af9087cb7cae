// platform/platform.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package platform

// Platform is the interface that abstracts platform-specific features like
// creating windows and processing events.
type Platform interface {
	// ProcessEvents handles all pending window events. Returns true if
	// there were any events and false otherwise.
	ProcessEvents() bool
	// PostRender performs the buffer swap.
	PostRender()
	// Dispose is called when the application is shutting down and is when
	// resources are be freed.
	Dispose()
	// ShouldStop returns true if the window is to be closed.
	ShouldStop() bool
	SetWindowTitle(text string)
	// InputCharacters returns a string of all the characters that have
	// been entered since the last call to ProcessEvents.
	InputCharacters() string
	// EnableVSync specifies whether v-sync should be used when rendering.
	EnableVSync(sync bool)
	// WindowSize returns the size of the window.
	WindowSize() [2]int
	// WindowPosition returns the position of the window on the screen.
	WindowPosition() [2]int
	// FramebufferSize returns the dimension of the framebuffer, in pixels.
	FramebufferSize() [2]int
	// Time returns the number of seconds since the platform was
	// initialized.
	Time() float64
}

type Config struct {
	InitialWindowSize     [2]int
	InitialWindowPosition [2]int
	Title                 string

	EnableMSAA  bool
	EnableVSync bool
}

// initialWindowGeometry returns the size and position for a new window
// given the configuration and the size of the primary monitor. A zero
// size gives a window slightly smaller than the monitor; out-of-bounds
// positions are replaced with (100, 100).
func initialWindowGeometry(config Config, monitorWidth, monitorHeight int) (size, pos [2]int) {
	size, pos = config.InitialWindowSize, config.InitialWindowPosition
	if size[0] <= 0 || size[1] <= 0 {
		size = [2]int{max(monitorWidth-150, 320), max(monitorHeight-150, 240)}
	}
	if pos[0] < 0 || pos[1] < 0 || pos[0] > monitorWidth || pos[1] > monitorHeight {
		pos = [2]int{100, 100}
	}
	return
}
