package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/hupe1980/taskmesh/queue"
	"github.com/hupe1980/taskmesh/session"
)

const (
	okMark   = "✓"
	failMark = "✗"
	infoMark = "•"
)

var markColors = map[string]color.Attribute{
	okMark:   color.FgGreen,
	failMark: color.FgRed,
	infoMark: color.FgCyan,
}

// printStatus prints a status line with a colored mark.
func printStatus(w io.Writer, mark, message string) {
	c := color.New(markColors[mark])
	fmt.Fprintf(w, "%s %s\n", c.Sprint(mark), message)
}

func printSessions(w io.Writer, infos []session.Info) {
	if len(infos) == 0 {
		fmt.Fprintln(w, "No sessions yet")
		return
	}

	bold := color.New(color.Bold)
	fmt.Fprintf(w, "%d sessions:\n\n", len(infos))
	bold.Fprintf(w, "%-20s %-10s %-20s\n", "Session ID", "Messages", "Last active")
	fmt.Fprintln(w, strings.Repeat("-", 50))
	for _, s := range infos {
		last := "-"
		if !s.LastActive.IsZero() {
			last = s.LastActive.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%-20s %-10d %-20s\n", s.ID, s.MessageCount, last)
	}
}

var statusColors = map[queue.Status]*color.Color{
	queue.StatusPending:   color.New(color.FgYellow),
	queue.StatusRunning:   color.New(color.FgCyan),
	queue.StatusCompleted: color.New(color.FgGreen),
	queue.StatusFailed:    color.New(color.FgRed),
}

func printQueue(w io.Writer, tasks []queue.Task, stats queue.Stats) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "Queue is empty")
		return
	}

	fmt.Fprintf(w, "Pending %d, running %d, completed %d, failed %d\n\n",
		stats.Pending, stats.Running, stats.Completed, stats.Failed)

	color.New(color.Bold).Fprintf(w, "%-10s %-40s %-15s\n", "Status", "Task", "Session")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, t := range tasks {
		c, ok := statusColors[t.Status]
		if !ok {
			c = color.New(color.Reset)
		}
		fmt.Fprintf(w, "%s %-40s %-15s\n", c.Sprintf("%-10s", t.Status), truncate(t.Task, 38), t.SessionID)
		if t.Error != "" {
			fmt.Fprintf(w, "%-10s %s\n", "", color.RedString("error: %s", truncate(t.Error, 60)))
		}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
