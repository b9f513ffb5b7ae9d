//go:build darwin

package main

import "os/exec"

func openCommand(dir string) *exec.Cmd { return exec.Command("open", dir) }
