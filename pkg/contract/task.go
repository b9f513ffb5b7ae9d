package contract

import (
	"fmt"
	"sort"
	"strings"
)

// Task: 枚举型任务选择器。名称即 CLI/配置中使用的值。
type Task string

const (
	TaskRemoveDomains     Task = "remove-domains"
	TaskRemoveDuplicates  Task = "remove-duplicates"
	TaskExtractDuplicates Task = "extract-duplicates"
	TaskCompare           Task = "compare"
	TaskSplitByLines      Task = "split-by-lines"
	TaskSplitByParts      Task = "split-by-parts"
	TaskMerge             Task = "merge"
	TaskShuffle           Task = "shuffle"
	TaskExtractLogins     Task = "extract-logins"
	TaskExtractPasswords  Task = "extract-passwords"
	TaskExtractPhones     Task = "extract-phones"
)

var suffixes = map[Task]string{
	TaskRemoveDomains:     "_no_domains",
	TaskRemoveDuplicates:  "_no_duplicates",
	TaskExtractDuplicates: "_duplicates",
	TaskCompare:           "_without_{ref}",
	TaskSplitByLines:      "_part_{num}",
	TaskSplitByParts:      "_part_{num}",
	TaskMerge:             "_merged",
	TaskShuffle:           "_randomized",
	TaskExtractLogins:     "_logins",
	TaskExtractPasswords:  "_passwords",
	TaskExtractPhones:     "_phones",
}

// Tasks 返回全部已知任务（字典序，稳定）。
func Tasks() []Task {
	out := make([]Task, 0, len(suffixes))
	for t := range suffixes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseTask 解析任务名（大小写不敏感，允许前导 "--"）。
func ParseTask(s string) (Task, error) {
	t := Task(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "--")))
	if _, ok := suffixes[t]; !ok {
		return "", fmt.Errorf("%w: unknown task %q", ErrInvalidInput, s)
	}
	return t, nil
}

// Suffix 返回结果文件名后缀；占位符 {num}/{ref} 由调用方替换。
func (t Task) Suffix() string { return suffixes[t] }

// NeedsNumber 报告任务是否要求数值参数（每份行数或份数）。
func (t Task) NeedsNumber() bool { return t == TaskSplitByLines || t == TaskSplitByParts }

// NeedsReference 报告任务是否要求参照语料路径。
func (t Task) NeedsReference() bool { return t == TaskCompare }

// Title 返回用于结果目录的任务名（与 CLI 值一致）。
func (t Task) Title() string { return string(t) }
