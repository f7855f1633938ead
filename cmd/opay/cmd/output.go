package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/donaldgifford/opay/internal/api/handlers"
)

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func printSettings(w io.Writer, s *handlers.SettingsBody) error {
	tw := newTabWriter(w)
	tw.writef("Token:\t%s\n", orDash(s.Token))
	tw.writef("Merchant ID:\t%s\n", orDash(s.MerchantID))
	tw.writef("API URI:\t%s\n", orDash(s.APIURI))
	tw.writef("Valid:\t%v\n", s.Valid)
	return tw.finish()
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputRaw pretty-prints an already encoded JSON value.
func outputRaw(raw json.RawMessage) error {
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("formatting response: %w", err)
	}
	buf.WriteByte('\n')

	_, err := buf.WriteTo(os.Stdout)
	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
