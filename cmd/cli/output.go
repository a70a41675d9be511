package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
)

var (
	bold    = color.New(color.Bold)
	success = color.New(color.FgGreen)
	info    = color.New(color.FgCyan)
	faint   = color.New(color.Faint)
	warning = color.New(color.FgYellow)
)

func printSuccess(format string, args ...interface{}) {
	success.Printf("✓ "+format+"\n", args...)
}

func debugf(format string, args ...interface{}) {
	faint.Printf(format+"\n", args...)
}

// ago renders a timestamp as a short relative age
func ago(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
