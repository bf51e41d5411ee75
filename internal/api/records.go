package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"

	"yeoneunal/internal/logging"
)

// RecordedAtLayout is the naive local timestamp format the backend expects
// for the recordedAt form field.
const RecordedAtLayout = "2006-01-02T15:04:05"

// AudioUpload is one recording to upload.
type AudioUpload struct {
	FileName string
	Content  io.Reader
	// RecordedAt is optional; the zero value omits the field.
	RecordedAt time.Time
}

// UploadAudio uploads a recording for a ward and returns the new record id.
func (c *Client) UploadAudio(ctx context.Context, wardID int64, up AudioUpload) (int64, error) {
	if up.Content == nil {
		return 0, &Error{Op: OpUploadAudio, Kind: KindEncode, Err: fmt.Errorf("no audio content")}
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	name := filepath.Base(up.FileName)
	if name == "" || name == "." || name == "/" {
		name = "recording"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
	h.Set("Content-Type", audioContentType(name))
	part, err := mw.CreatePart(h)
	if err != nil {
		return 0, &Error{Op: OpUploadAudio, Kind: KindEncode, Err: err}
	}
	if _, err := io.Copy(part, up.Content); err != nil {
		return 0, &Error{Op: OpUploadAudio, Kind: KindEncode, Err: err}
	}
	if !up.RecordedAt.IsZero() {
		if err := mw.WriteField("recordedAt", up.RecordedAt.Format(RecordedAtLayout)); err != nil {
			return 0, &Error{Op: OpUploadAudio, Kind: KindEncode, Err: err}
		}
	}
	if err := mw.Close(); err != nil {
		return 0, &Error{Op: OpUploadAudio, Kind: KindEncode, Err: err}
	}

	body, err := c.do(ctx, request{
		op:          OpUploadAudio,
		method:      http.MethodPost,
		path:        fmt.Sprintf("/audio-records/ward/%d", wardID),
		body:        &buf,
		contentType: mw.FormDataContentType(),
	})
	if err != nil {
		return 0, err
	}
	id, ok := extractID(body, recordIDKeys)
	if !ok {
		return 0, decodeError(OpUploadAudio, ErrNoID)
	}
	logging.API("record %d uploaded for ward %d", id, wardID)
	return id, nil
}

// GetRecord loads the current state of a recording.
func (c *Client) GetRecord(ctx context.Context, recordID int64) (*AudioRecord, error) {
	body, err := c.do(ctx, request{op: OpGetRecord, method: http.MethodGet, path: "/audio-records/" + pathID(recordID)})
	if err != nil {
		return nil, err
	}
	var rec AudioRecord
	if err := decodeObject(OpGetRecord, body, &rec); err != nil {
		return nil, err
	}
	if rec.ID == 0 {
		rec.ID = recordID
	}
	return &rec, nil
}

// ListRecords returns every recording of a ward.
func (c *Client) ListRecords(ctx context.Context, wardID int64) ([]AudioRecord, error) {
	body, err := c.do(ctx, request{op: OpListRecords, method: http.MethodGet, path: fmt.Sprintf("/audio-records/ward/%d", wardID)})
	if err != nil {
		return nil, err
	}
	return decodeList[AudioRecord](OpListRecords, body)
}

// LatestRecord returns a ward's most recent recording.
func (c *Client) LatestRecord(ctx context.Context, wardID int64) (*AudioRecord, error) {
	body, err := c.do(ctx, request{op: OpLatestRecord, method: http.MethodGet, path: fmt.Sprintf("/audio-records/ward/%d/latest", wardID)})
	if err != nil {
		return nil, err
	}
	var rec AudioRecord
	if err := decodeObject(OpLatestRecord, body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func audioContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }
