//go:build windows

package main

import "os/exec"

func openCommand(dir string) *exec.Cmd { return exec.Command("explorer", dir) }
