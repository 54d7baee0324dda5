package report

import (
	"encoding/json"
	"fmt"
	"io"
)

// serializedReport is the on-disk form of a ShiftReport. Output options are
// carried along so a report read back renders the same records.
type serializedReport struct {
	*ShiftReport
	Headers           Headers `json:"headers"`
	IncludeAttributes bool    `json:"includeAttributes"`
	AmbiguousMarker   string  `json:"ambiguousMarker"`
	NotFoundMarker    string  `json:"notFoundMarker"`
}

// WriteJSON writes the report (wide table, triage and stats) as indented JSON.
func WriteJSON(w io.Writer, r *ShiftReport) error {
	sr := serializedReport{
		ShiftReport:       r,
		Headers:           r.Options.Headers,
		IncludeAttributes: r.Options.IncludeAttributes,
		AmbiguousMarker:   r.Options.AmbiguousMarker,
		NotFoundMarker:    r.Options.NotFoundMarker,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sr); err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	return nil
}

// ReadJSON reconstructs a ShiftReport written by WriteJSON.
func ReadJSON(r io.Reader) (*ShiftReport, error) {
	sr := serializedReport{ShiftReport: &ShiftReport{}}
	if err := json.NewDecoder(r).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to deserialize report: %w", err)
	}
	sr.ShiftReport.Options = AssembleOptions{
		Headers:           sr.Headers,
		IncludeAttributes: sr.IncludeAttributes,
		AmbiguousMarker:   sr.AmbiguousMarker,
		NotFoundMarker:    sr.NotFoundMarker,
	}
	sr.ShiftReport.Options.withDefaults()
	return sr.ShiftReport, nil
}
