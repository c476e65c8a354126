package main

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// phaseSpinner shows the current workflow phase while a transfer runs.
type phaseSpinner struct {
	spinner *spinner.Spinner
}

func newPhaseSpinner(w io.Writer, message string) *phaseSpinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = w
	return &phaseSpinner{spinner: s}
}

func (p *phaseSpinner) Start() {
	p.spinner.Start()
}

func (p *phaseSpinner) Stop() {
	p.spinner.Stop()
}

// Update changes the message; safe to call from the workflow goroutine.
func (p *phaseSpinner) Update(message string) {
	p.spinner.Lock()
	p.spinner.Suffix = " " + message
	p.spinner.Unlock()
}

func success(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", color.GreenString("✓"), fmt.Sprintf(format, args...))
}

func failure(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", color.RedString("✗"), fmt.Sprintf(format, args...))
}

func info(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", color.CyanString("ℹ"), fmt.Sprintf(format, args...))
}
