package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/feed/pkg/paths"
	"github.com/grovetools/feed/render"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

// logLine is one line read from a log file.
type logLine struct {
	File string
	Text string
}

// NewLogsCmd creates the `logs` command.
func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs [component]",
		Short: "Show or follow the feed log files",
		Long: `Prints the most recent log file of a component (default: feed) from the
logs directory under the state directory. JSON lines are pretty-printed.

Examples:
  # Follow the session log
  feed logs -f

  # Last 50 lines of the mock peer log as JSON Lines
  feed logs mock-peer --tail 50 --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runLogsE,
	}

	cmd.Flags().BoolP("follow", "f", false, "Follow log output")
	cmd.Flags().Int("tail", -1, "Number of lines to show from the end of the log (default: all)")
	cmd.Flags().Bool("poll", false, "Poll for changes instead of using inotify")

	return cmd
}

func runLogsE(cmd *cobra.Command, args []string) error {
	component := "feed"
	if len(args) == 1 {
		component = args[0]
	}
	follow, _ := cmd.Flags().GetBool("follow")
	tailLines, _ := cmd.Flags().GetInt("tail")
	poll, _ := cmd.Flags().GetBool("poll")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	logsDir := filepath.Join(paths.StateDir(), "logs")
	path, err := findLatestLogFile(logsDir, component)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	printer := func(l logLine) {
		if jsonOutput {
			printLogJSON(w, l)
		} else {
			printLogText(w, l)
		}
	}

	offset, err := printLastLines(path, tailLines, printer)
	if err != nil {
		return err
	}
	if !follow {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return followFile(ctx, path, offset, poll, printer)
}

// findLatestLogFile returns the newest non-empty <component>-*.log in dir,
// or the newest one if all are empty.
func findLatestLogFile(dir, component string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, component+"-*.log"))
	if err != nil {
		return "", err
	}

	var latest, latestNonEmpty string
	var latestTime, latestNonEmptyTime time.Time
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if latest == "" || info.ModTime().After(latestTime) {
			latest, latestTime = path, info.ModTime()
		}
		if info.Size() > 0 && (latestNonEmpty == "" || info.ModTime().After(latestNonEmptyTime)) {
			latestNonEmpty, latestNonEmptyTime = path, info.ModTime()
		}
	}

	switch {
	case latestNonEmpty != "":
		return latestNonEmpty, nil
	case latest != "":
		return latest, nil
	default:
		return "", fmt.Errorf("no %s log files found in %s", component, dir)
	}
}

// printLastLines prints the last n lines of path (all when n < 0) and returns
// the offset reached.
func printLastLines(path string, n int, print func(logLine)) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}

	if n >= 0 && n < len(lines) {
		lines = lines[len(lines)-n:]
	}
	name := filepath.Base(path)
	for _, line := range lines {
		print(logLine{File: name, Text: line})
	}

	offset, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	return offset, nil
}

// followFile prints lines appended to path after offset until ctx is done.
func followFile(ctx context.Context, path string, offset int64, poll bool, print func(logLine)) error {
	t, err := tail.TailFile(path, tail.Config{
		Follow:   true,
		ReOpen:   true,
		Poll:     poll,
		Location: &tail.SeekInfo{Offset: offset, Whence: io.SeekStart},
		Logger:   tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to follow %s: %w", path, err)
	}
	defer t.Cleanup()

	name := filepath.Base(path)
	for {
		select {
		case <-ctx.Done():
			return t.Stop()
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				return line.Err
			}
			if text := strings.TrimSpace(line.Text); text != "" {
				print(logLine{File: name, Text: text})
			}
		}
	}
}

// printLogJSON prints a log line as JSON, enriched with the file name.
func printLogJSON(w io.Writer, l logLine) {
	var logMap map[string]interface{}
	if err := json.Unmarshal([]byte(l.Text), &logMap); err != nil {
		logMap = map[string]interface{}{
			"raw_line": l.Text,
			"error":    "failed to parse original log line as JSON",
		}
	}
	logMap["file"] = l.File
	jsonData, _ := json.Marshal(logMap)
	fmt.Fprintln(w, string(jsonData))
}

// printLogText pretty-prints a JSON log line. Other lines print verbatim.
func printLogText(w io.Writer, l logLine) {
	var logMap map[string]interface{}
	if err := json.Unmarshal([]byte(l.Text), &logMap); err != nil {
		fmt.Fprintln(w, l.Text)
		return
	}

	c := render.DarkColors()
	muted := lipgloss.NewStyle().Foreground(c.Muted)

	ts, _ := logMap["time"].(string)
	level, _ := logMap["level"].(string)
	msg, _ := logMap["msg"].(string)
	component, _ := logMap["component"].(string)

	timeStr := ts
	if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		timeStr = parsed.Format("15:04:05")
	}

	var levelColor lipgloss.Color
	switch strings.ToLower(level) {
	case "error", "fatal", "panic":
		levelColor = c.Danger
	case "warning":
		levelColor = c.Warning
	case "info":
		levelColor = c.Info
	default:
		levelColor = c.Muted
	}
	levelStr := lipgloss.NewStyle().Foreground(levelColor).Render(strings.ToUpper(level))

	var keys []string
	for k := range logMap {
		switch k {
		case "time", "level", "msg", "component":
		default:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, fmt.Sprintf("%s=%v", muted.Render(k), logMap[k]))
	}

	line := fmt.Sprintf("%s %s [%s] %s", timeStr, levelStr, muted.Render(component), msg)
	if len(fields) > 0 {
		line += " " + strings.Join(fields, " ")
	}
	fmt.Fprintln(w, line)
}
