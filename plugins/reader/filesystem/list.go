package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ListFiles 展开 roots 为常规文件路径列表，顺序稳定。
// 约束：
//  1. 目录按字典序递归，先子目录后文件；ExcludeDirNames 中的目录名被跳过。
//  2. 指向常规文件的符号链接被接受；目录符号链接不跟随。
//  3. 无法访问的 root 返回错误，由调用方决定是否跳过。
func (r *FileSystem) ListFiles(ctx context.Context, roots []string) ([]string, error) {
	var out []string
	for _, root := range roots {
		if err := r.listOne(ctx, root, &out); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (r *FileSystem) listOne(ctx context.Context, root string, out *[]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Lstat(root)
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		t, err := os.Stat(root)
		if err != nil {
			return err
		}
		if t.Mode().IsRegular() {
			*out = append(*out, root)
		}
		return nil
	}
	if info.IsDir() {
		return r.walkDir(ctx, root, out)
	}
	if info.Mode().IsRegular() {
		*out = append(*out, root)
	}
	return nil
}

func (r *FileSystem) walkDir(ctx context.Context, dir string, out *[]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, skip := r.excludeDir[strings.ToLower(e.Name())]; skip {
			continue
		}
		if err := r.walkDir(ctx, filepath.Join(dir, e.Name()), out); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if e.Type()&os.ModeSymlink != 0 {
			t, err := os.Stat(p)
			if err != nil || !t.Mode().IsRegular() {
				continue
			}
			*out = append(*out, p)
			continue
		}
		if e.Type().IsRegular() {
			*out = append(*out, p)
		}
	}
	return nil
}
