package log

import (
	"encoding/json"
	"io"
	"os"
)

// Transporter is a log output destination.
type Transporter interface {
	Name() string
	Write(entry Entry) error
	Close() error
}

// Stdout writes line-delimited JSON entries to an io.Writer.
type Stdout struct {
	w io.Writer
}

// NewStdout creates a transporter writing to os.Stdout.
func NewStdout() *Stdout {
	return &Stdout{w: os.Stdout}
}

// NewStdoutWithWriter creates a transporter with a custom writer.
// Useful for testing.
func NewStdoutWithWriter(w io.Writer) *Stdout {
	return &Stdout{w: w}
}

func (s *Stdout) Name() string { return "stdout" }

func (s *Stdout) Write(entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = s.w.Write(data)
	return err
}

func (s *Stdout) Close() error { return nil }
