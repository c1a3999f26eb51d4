// Package model defines the core data types for the icon transfer pipeline:
// the unit of work (IconRequest), the two icon formats, the per-item result
// and outcome types, and the failure taxonomy shared by fetcher and uploader.
package model

import (
	"errors"
	"fmt"
)

// IconFormat identifies which binary representation of an icon was fetched.
// The value doubles as the file extension on both the icon host and the device.
type IconFormat string

const (
	// FormatGIF is the animated representation. AWTRIX prefers it, so the
	// fetcher always tries GIF first.
	FormatGIF IconFormat = "gif"
	// FormatPNG is the static fallback.
	FormatPNG IconFormat = "png"
)

// FetchFormats is the ordered list of formats the fetcher attempts.
// Order matters: animated first, static as fallback.
var FetchFormats = []IconFormat{FormatGIF, FormatPNG}

// ContentType returns the MIME type for this format, used both in the
// upload multipart part and by the device simulator.
func (f IconFormat) ContentType() string {
	return "image/" + string(f)
}

// IconRequest is one unit of work: a human-readable label plus the numeric
// LaMetric icon ID. Requests are built once at startup and never mutated.
type IconRequest struct {
	Label  string
	IconID int
}

// DefaultIcons returns the recommended icon set for the Stock Display
// blueprint, in the order they are processed and reported.
func DefaultIcons() []IconRequest {
	return []IconRequest{
		{Label: "stock-up", IconID: 40160},
		{Label: "stock-down", IconID: 40176},
		{Label: "stock-neutral", IconID: 40161},
	}
}

// FetchResult holds a successfully retrieved icon: the raw bytes and the
// format that was actually obtained. It lives only between fetch and upload.
type FetchResult struct {
	IconID int
	Format IconFormat
	Data   []byte
}

// Filename derives the device-side filename for an icon. The name is the
// decimal icon ID plus the extension of the fetched format, so names are
// stable and collision-free per (id, format) and the blueprint can reference
// icons purely by numeric ID.
func Filename(iconID int, format IconFormat) string {
	return fmt.Sprintf("%d.%s", iconID, format)
}

// FailReason classifies why a single request failed. The batch treats every
// reason the same way (skip and continue); the reason only affects reporting.
type FailReason string

const (
	ReasonNotFound          FailReason = "not_found"
	ReasonNetworkError      FailReason = "network_error"
	ReasonTimeout           FailReason = "timeout"
	ReasonUploadRejected    FailReason = "upload_rejected"
	ReasonUploadUnreachable FailReason = "upload_unreachable"
	// ReasonCancelled marks requests that were never started because the run
	// was cancelled between items.
	ReasonCancelled FailReason = "cancelled"
)

// PipelineError pairs an underlying error with its classification.
// Components wrap every failure in one of these at their boundary, so the
// orchestrator can record an accurate reason without inspecting transport
// details. Callers use errors.As via ReasonOf.
type PipelineError struct {
	Reason FailReason
	Err    error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// ReasonOf extracts the failure classification from err. Unclassified errors
// fall back to ReasonNetworkError so no outcome is ever left without a reason.
func ReasonOf(err error) FailReason {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Reason
	}
	return ReasonNetworkError
}

// UploadOutcome records the terminal state of one IconRequest.
// Format is empty when the fetch never succeeded; Reason is empty on success.
type UploadOutcome struct {
	Label     string
	IconID    int
	Format    IconFormat
	Succeeded bool
	Reason    FailReason
	Detail    string
}

// BatchSummary is the ordered list of outcomes for one run, in input order.
// It is the sole output contract of the pipeline and is never persisted.
type BatchSummary struct {
	Outcomes []UploadOutcome
}

// Add appends an outcome. Outcomes must be added in input order.
func (s *BatchSummary) Add(o UploadOutcome) {
	s.Outcomes = append(s.Outcomes, o)
}

// Succeeded returns the number of successful uploads.
func (s *BatchSummary) Succeeded() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Succeeded {
			n++
		}
	}
	return n
}

// Failed returns the number of failed requests.
func (s *BatchSummary) Failed() int {
	return len(s.Outcomes) - s.Succeeded()
}

// AllSucceeded reports whether every request in the batch uploaded cleanly.
func (s *BatchSummary) AllSucceeded() bool {
	return s.Failed() == 0
}
