// Package actions provides the guest-side implementations behind each
// dispatcher method: input injection, process execution, filesystem access,
// and environment introspection.
package actions

import (
	"time"

	"github.com/voocel/pilot/guest"
	"github.com/voocel/pilot/schema"
)

// Options carries the platform collaborators and limits for the action set.
// Zero values select workable defaults for a Linux desktop guest.
type Options struct {
	// Input is the pointer/keyboard injection boundary.
	Input Injector

	// Tree is the accessibility traversal boundary.
	Tree TreeReader

	// Shell runs run_command lines, WorkDir is their working directory.
	Shell   string
	WorkDir string

	// CommandTimeout applies when a run_command call carries no timeout.
	CommandTimeout time.Duration

	// MaxTextBytes and MaxImageBytes cap read_file payloads.
	MaxTextBytes  int64
	MaxImageBytes int64

	// OpenCommand hands files to the desktop's default handler.
	OpenCommand string
}

func (o *Options) setDefaults() {
	if o.Input == nil {
		o.Input = &ExecInjector{}
	}
	if o.Tree == nil {
		o.Tree = &WindowTreeReader{}
	}
	if o.Shell == "" {
		o.Shell = "/bin/sh"
	}
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = 30 * time.Second
	}
	if o.MaxTextBytes <= 0 {
		o.MaxTextBytes = 256 << 10
	}
	if o.MaxImageBytes <= 0 {
		o.MaxImageBytes = 8 << 20
	}
	if o.OpenCommand == "" {
		o.OpenCommand = "xdg-open"
	}
}

// Register wires every guest tool onto d.
func Register(d *guest.Dispatcher, opts Options) {
	opts.setDefaults()

	in := &inputActions{inj: opts.Input}
	d.Register(schema.ToolMoveMouse, in.moveMouse)
	d.Register(schema.ToolClickMouse, in.clickMouse)
	d.Register(schema.ToolDragMouse, in.dragMouse)
	d.Register(schema.ToolTypeText, in.typeText)
	d.Register(schema.ToolPressKey, in.pressKey)
	d.Register(schema.ToolScroll, in.scroll)

	cmd := &commandActions{shell: opts.Shell, workDir: opts.WorkDir, defaultTimeout: opts.CommandTimeout}
	d.Register(schema.ToolRunCommand, cmd.runCommand)

	files := &fileActions{maxTextBytes: opts.MaxTextBytes, maxImageBytes: opts.MaxImageBytes}
	d.Register(schema.ToolReadFile, files.readFile)
	d.Register(schema.ToolMoveFile, files.moveFile)

	apps := &appActions{openCommand: opts.OpenCommand}
	d.Register(schema.ToolLaunchApp, apps.launchApp)
	d.Register(schema.ToolOpenFile, apps.openFile)

	tree := &treeActions{reader: opts.Tree}
	d.Register(schema.ToolReadAccessibilityTree, tree.readTree)

	d.Register(schema.ToolWait, waitAction)
	d.Register(schema.ToolCheckHealth, checkHealth)
}

func okResult() map[string]bool {
	return map[string]bool{"ok": true}
}
