package main

import (
	"runtime"

	"github.com/bryanchriswhite/CamLayer/cmd/camlayer/commands"
)

func init() {
	// GLFW and wgpu surface presentation must stay on the thread that
	// created the windows.
	runtime.LockOSThread()
}

func main() {
	commands.Execute()
}
