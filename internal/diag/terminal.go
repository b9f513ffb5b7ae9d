package diag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// Terminal: 终端信息提示（非日志）。
// - 输出到提供的 io.Writer（默认建议 stderr）。
// - TTY: 彩色标签，进度单行 \r 覆盖；非 TTY: 纯文本，关键节点分行打印。
// - 并发安全；写失败后进入禁用态为 no-op。
type Terminal struct {
	w       io.Writer
	enabled bool
	isTTY   bool
	styles  map[string]lipgloss.Style

	task      string
	filesAll  int
	filesDone int
	runStart  time.Time
	curFile   string

	lastLen   int
	lastFlush time.Time

	mu sync.Mutex
}

// NewTerminal 构造终端提示器。
// enabled=false 时总是 no-op。
func NewTerminal(w io.Writer, enabled bool) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	t := &Terminal{w: w, enabled: enabled}
	// CI 环境视为非 TTY
	if os.Getenv("CI") == "" {
		if f, ok := w.(*os.File); ok {
			t.isTTY = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
	}
	if t.isTTY {
		r := lipgloss.NewRenderer(w)
		t.styles = map[string]lipgloss.Style{
			"run":  r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
			"file": r.NewStyle().Foreground(lipgloss.Color("14")),
			"ok":   r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
			"done": r.NewStyle().Foreground(lipgloss.Color("10")),
			"warn": r.NewStyle().Foreground(lipgloss.Color("11")),
			"fail": r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		}
	}
	return t
}

// IsTTY 报告输出是否为终端。
func (t *Terminal) IsTTY() bool { return t != nil && t.isTTY }

// RunStart: 记录运行上下文。
func (t *Terminal) RunStart(task string, files, workers int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.task = task
	t.filesAll = files
	t.filesDone = 0
	t.runStart = time.Now()
	t.println(t.tag("run") + fmt.Sprintf(" 任务=%s | 文件 %d | 并发=%d", task, files, workers))
}

// FileStart: 标记当前文件；size<0 表示未知。
func (t *Terminal) FileStart(path string, size int64) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.curFile = shortenBase(path, 48)
	msg := fmt.Sprintf(" [%d/%d] %s", t.filesDone+1, t.filesAll, t.curFile)
	if size >= 0 {
		msg += " | " + humanize.IBytes(uint64(size))
	}
	t.println(t.tag("file") + msg)
}

// Stage: 当前文件进入新阶段（例如“比较”“保存”）。
func (t *Terminal) Stage(msg string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	if t.isTTY {
		t.printInline(fmt.Sprintf("%s %s | %s", t.tag("file"), t.curFile, safe(msg)))
		return
	}
	t.println(fmt.Sprintf("[file] %s | %s", t.curFile, safe(msg)))
}

// Progress: 周期性进度（≥100ms 节流，仅 TTY）。
func (t *Terminal) Progress(done, total int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled || !t.isTTY {
		return
	}
	now := time.Now()
	if now.Sub(t.lastFlush) < 100*time.Millisecond {
		return
	}
	t.lastFlush = now
	line := fmt.Sprintf("%s %s | 行 %s", t.tag("file"), t.curFile, humanize.Comma(int64(done)))
	if total > 0 {
		line += "/" + humanize.Comma(int64(total))
	}
	t.printInline(line + " | 用时 " + formatSince(t.runStart))
}

// Warn: 可恢复问题（跳过的参照文件、丢失的批次等）。
func (t *Terminal) Warn(msg string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.clearInline()
	t.println(t.tag("warn") + " " + safe(msg))
}

// FileFinish: 完成当前文件（立即刷新并换行；filesDone++）。
// in/out 为读入与写出的行数；err 非空表示该文件失败。
func (t *Terminal) FileFinish(in, out int, dur time.Duration, err error) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.filesDone++
	t.clearInline()
	if err != nil {
		t.println(fmt.Sprintf("%s %s | %s | 用时 %s", t.tag("fail"), t.curFile, safe(err.Error()), formatDur(dur)))
		return
	}
	t.println(fmt.Sprintf("%s %s | 读入 %s 行 | 写出 %s 行 | 用时 %s",
		t.tag("done"), t.curFile, humanize.Comma(int64(in)), humanize.Comma(int64(out)), formatDur(dur)))
}

// RunFinish: 结束总览。
func (t *Terminal) RunFinish(failed int, dur time.Duration, resultsDir string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	tag := "ok"
	if failed > 0 {
		tag = "fail"
	}
	msg := fmt.Sprintf(" 全部完成 | 文件 %d | 失败 %d | 总用时 %s", t.filesDone, failed, formatDur(dur))
	if resultsDir != "" {
		msg += " | 结果 " + resultsDir
	}
	t.println(t.tag(tag) + msg)
}

func (t *Terminal) tag(name string) string {
	s := "[" + name + "]"
	if st, ok := t.styles[name]; ok {
		return st.Render(s)
	}
	return s
}

// 内部输出工具
func (t *Terminal) println(s string) {
	if t == nil || !t.enabled {
		return
	}
	if _, err := io.WriteString(t.w, s+"\n"); err != nil {
		// 写失败即禁用
		t.enabled = false
	}
	t.lastLen = 0
}

func (t *Terminal) clearInline() {
	if t.isTTY && t.lastLen > 0 {
		t.printInline("")
		_, _ = io.WriteString(t.w, "\r")
		t.lastLen = 0
	}
}

func (t *Terminal) printInline(s string) {
	if t == nil || !t.enabled {
		return
	}
	// 清尾：若新行比旧短，填充空格覆盖
	pad := 0
	if l := visLen(s); t.lastLen > l {
		pad = t.lastLen - l
	}
	var b strings.Builder
	b.WriteByte('\r')
	b.WriteString(s)
	if pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	if _, err := io.WriteString(t.w, b.String()); err != nil {
		t.enabled = false
		return
	}
	t.lastLen = visLen(s)
}

// shortenBase: 取基名并按可见宽度截断（尾部省略号）。
func shortenBase(s string, max int) string {
	if max <= 0 {
		return ""
	}
	base := filepath.Base(strings.TrimSpace(s))
	if base == "" || base == "." {
		return ""
	}
	if visLen(base) <= max {
		return base
	}
	cut := max - 1
	if cut < 1 {
		cut = 1
	}
	rs := []rune(base)
	return string(rs[:cut]) + "…"
}

// visLen 按终端显示宽度计算（忽略 ANSI 转义）。
func visLen(s string) int { return lipgloss.Width(s) }

func safe(s string) string {
	// 避免换行等控制字符污染终端
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}

func formatSince(t0 time.Time) string { return formatDur(time.Since(t0)) }

func formatDur(d time.Duration) string {
	if d < time.Second {
		ms := d.Milliseconds()
		if ms <= 0 {
			ms = 0
		}
		return fmt.Sprintf("%dms", ms)
	}
	s := float64(d.Milliseconds()) / 1000.0
	return fmt.Sprintf("%.1fs", s)
}
