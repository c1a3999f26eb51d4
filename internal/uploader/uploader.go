// Package uploader pushes icon files to an AWTRIX device over its HTTP
// control API. The device exposes an /edit endpoint that accepts multipart
// uploads and writes them to its LittleFS filesystem.
package uploader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/Raythekool/ha-awtrix-yahoofinance-stock/internal/model"
)

// IconDir is the fixed device-side folder icons are stored under. AWTRIX
// only picks up icons from this path.
const IconDir = "/ICONS"

// formField is the multipart field name the device's /edit handler expects.
const formField = "data"

// Uploader transfers files to a single AWTRIX device. One attempt per call;
// retry policy, if anyone ever wants one, belongs to the caller.
type Uploader struct {
	deviceAddr string
	client     *http.Client
	logger     *zap.Logger
}

// New creates an Uploader for the device at the given IP or hostname.
func New(deviceAddr string, timeout time.Duration, logger *zap.Logger) *Uploader {
	return &Uploader{
		deviceAddr: deviceAddr,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Upload sends data to the device as {IconDir}/{filename}. Any status other
// than 200 or 201 counts as a rejection; transport failures are classified
// as unreachable or timeout so the caller can report accurately.
func (u *Uploader) Upload(ctx context.Context, filename string, data []byte, format model.IconFormat) error {
	body, contentType, err := buildMultipart(filename, data, format)
	if err != nil {
		return fmt.Errorf("building upload body: %w", err)
	}

	url := fmt.Sprintf("http://%s/edit", u.deviceAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return &model.PipelineError{Reason: model.ReasonUploadUnreachable, Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := u.client.Do(req)
	if err != nil {
		return &model.PipelineError{Reason: classifyTransport(err), Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &model.PipelineError{
			Reason: model.ReasonUploadRejected,
			Err:    fmt.Errorf("device returned HTTP %d", resp.StatusCode),
		}
	}

	u.logger.Info("icon uploaded",
		zap.String("device", u.deviceAddr),
		zap.String("filename", path.Join(IconDir, filename)),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// buildMultipart assembles the form-data body the device expects: a single
// part named "data" whose filename carries the full device-side path.
func buildMultipart(filename string, data []byte, format model.IconFormat) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, formField, path.Join(IconDir, filename)))
	hdr.Set("Content-Type", format.ContentType())

	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}

	return &buf, mw.FormDataContentType(), nil
}

// classifyTransport maps transport errors to the upload failure taxonomy:
// timeouts stay timeouts, everything else (refused connection, DNS failure)
// means the device is unreachable.
func classifyTransport(err error) model.FailReason {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return model.ReasonTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.ReasonTimeout
	}
	return model.ReasonUploadUnreachable
}
