package main

import "path/filepath"

// openInFileBrowser 在平台文件管理器中打开 dir，不等待其退出。
func openInFileBrowser(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	cmd := openCommand(abs)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
