package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "combokit/internal/config"
	"combokit/pkg/contract"
)

func newInitCmd(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [dir]",
		Short: "在指定目录生成默认配置 combokit.yaml 和 .env 模板（已存在则跳过，不覆盖）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				dir = strings.TrimSpace(args[0])
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return configErr("生成默认配置失败: %w", err)
			}
			b, err := cfgpkg.TemplateYAML()
			if err != nil {
				return configErr("生成默认配置失败: %w", err)
			}
			cfgPath := filepath.Join(dir, cfgpkg.DefaultFile)
			if err := writeNew(cfgPath, b); err != nil {
				return configErr("生成默认配置失败: %w", err)
			}
			fprintf(stdout, "已生成 %s\n", cfgPath)
			if err := writeDotEnv(filepath.Join(dir, ".env")); err != nil {
				fprintf(stderr, "提示：.env 生成失败（已跳过）：%v\n", err)
			}
			return nil
		},
	}
}

func newTasksCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "列出全部任务及其结果文件后缀",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, t := range contract.Tasks() {
				extra := ""
				switch {
				case t.NeedsNumber():
					extra = "  (-n)"
				case t.NeedsReference():
					extra = "  (--compare-with)"
				}
				fprintf(stdout, "%-20s %s%s\n", t, t.Suffix(), extra)
			}
		},
	}
}

// writeNew 写入新文件；已存在时返回错误，不覆盖。
func writeNew(path string, b []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// loadDotEnv 读取简单的 .env 文件格式并注入进程环境。
// 规则：
// - 忽略不存在的文件；
// - 跳过空行与 # 注释；支持可选的前缀 "export "；
// - 仅按首个 '=' 分割，成对的单/双引号被去除；
// - 不覆盖已存在的环境变量。
func loadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, val, ok := strings.Cut(line, "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if !ok || key == "" {
			continue
		}
		if len(val) >= 2 && (val[0] == '\'' || val[0] == '"') && val[len(val)-1] == val[0] {
			val = val[1 : len(val)-1]
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, val)
	}
	return s.Err()
}

// writeDotEnv 生成 .env 模板（若文件已存在则跳过）。
func writeDotEnv(path string) error {
	var b strings.Builder
	b.WriteString("# combokit .env 模板（由 init-config 生成）\n")
	b.WriteString("# 优先级：命令行 > ENV(.env) > combokit.yaml\n")
	b.WriteString("# 空值表示未设置。\n\n")
	for _, k := range []string{
		"CONFIG_FILE",
		"SAVE_PERIOD",
		"WORKERS",
		"ENCODING",
		"RESULTS_DIR",
		"DEDUP_STRATEGY",
		"OPEN_RESULTS",
		"LOG_LEVEL",
		"LOG_DIR",
		"READER_BUF_SIZE",
		"READER_EXCLUDE_DIR_NAMES",
		"WRITER_SYNC",
	} {
		fmt.Fprintf(&b, "%s%s=\n", cfgpkg.EnvPrefix, k)
	}
	err := writeNew(path, []byte(b.String()))
	if os.IsExist(err) {
		return nil
	}
	return err
}
