package config

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// - 默认值与 Defaults 一致；
// - 写入选项给出显式权限与缓冲，便于按需修改。
func DefaultTemplateConfig() Config {
	cfg := Defaults()
	cfg.Writer.PermFile = 0o644
	cfg.Writer.PermDir = 0o755
	cfg.Writer.BufSize = 64 * 1024
	return cfg
}

const templateHeader = `# combokit 配置（由 init-config 生成）
# 优先级：命令行 > 环境变量(COMBOKIT_*) > 本文件 > 内置默认
# dedup_strategy: memory | sort | stream
# encoding: windows-1252 | windows-1251 | utf-8 | ...（htmlindex 名称）
# reader.exclude_dir_names: 遍历参考目录时跳过的目录名；默认不跳过
# open_results / writer.sync 可由 COMBOKIT_OPEN_RESULTS=false、COMBOKIT_WRITER_SYNC=false 或 --open=false 关闭
`

// MarshalYAML 以两空格缩进编码配置；仅包含可由文件配置的键。
func MarshalYAML(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TemplateYAML 返回带注释头的默认配置文件内容。
func TemplateYAML() ([]byte, error) {
	b, err := MarshalYAML(DefaultTemplateConfig())
	if err != nil {
		return nil, err
	}
	return append([]byte(templateHeader), b...), nil
}
