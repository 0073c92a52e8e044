package access

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-jobboard"
)

const maxErrorBody = 1 << 20

// Normalizer turns failed exchanges into the error taxonomy.
type Normalizer struct {
	UploadLimit string
	Metrics     *Metrics
}

// Normalizer returns a normalizer sharing the transport configuration.
func (t *Transport) Normalizer() Normalizer {
	return Normalizer{UploadLimit: t.cfg.UploadLimit, Metrics: t.cfg.Metrics}
}

// Normalize uses the default upload limit.
func Normalize(resp *http.Response, err error) error {
	return Normalizer{}.Normalize(resp, err)
}

// Normalize maps a transport error or a failure status to a rich error. It
// returns nil for 1xx-3xx answers. The body of a failed answer is read and
// replaced so callers can still consume it.
func (n Normalizer) Normalize(resp *http.Response, err error) error {
	if err != nil {
		return n.FromTransport(err)
	}
	if resp == nil || resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	var body []byte
	if resp.Body != nil {
		body, _ = io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewReader(body))
	}
	return n.FromStatus(resp.StatusCode, body)
}

// FromTransport keeps errors already carrying a kind and classifies the
// rest as timeout or network failures.
func (n Normalizer) FromTransport(err error) error {
	if err == nil {
		return nil
	}
	if jobboard.KindOf(err) != "" {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		n.Metrics.failure(string(jobboard.KindTimeout))
		return jobboard.NewKindError(jobboard.ErrTimeout, 0, err, nil)
	}
	n.Metrics.failure(string(jobboard.KindNetworkError))
	return jobboard.NewKindError(jobboard.ErrNetwork, 0, err, nil)
}

// FromStatus maps a failure status and its body.
func (n Normalizer) FromStatus(status int, body []byte) error {
	if status < http.StatusBadRequest {
		return nil
	}

	payload := ParseErrorBody(body)
	meta := map[string]any{}
	if payload.Message != "" {
		meta[jobboard.MetaServerMessage] = payload.Message
	}

	var out *goerrors.Error
	switch status {
	case http.StatusUnauthorized:
		out = jobboard.NewKindError(jobboard.ErrUnauthorized, status, nil, meta)
	case http.StatusForbidden:
		out = jobboard.NewKindError(jobboard.ErrForbidden, status, nil, meta)
		if payload.Message != "" {
			out.Message = payload.Message
		}
	case http.StatusRequestEntityTooLarge:
		limit := n.UploadLimit
		if limit == "" {
			limit = DefaultUploadLimit
		}
		meta["limit"] = limit
		out = jobboard.NewKindError(jobboard.ErrPayloadTooLarge, status, nil, meta)
		out.Message = fmt.Sprintf("the uploaded file is too large, files must not exceed %s", limit)
	case http.StatusUnprocessableEntity:
		out = jobboard.NewValidationError(payload.Message, payload.Fields)
		if out.Metadata == nil {
			out.Metadata = map[string]any{}
		}
		for k, v := range meta {
			out.Metadata[k] = v
		}
	default:
		out = jobboard.NewKindError(jobboard.ErrHTTP, status, nil, meta)
		if payload.Message != "" {
			out.Message = payload.Message
		} else if text := http.StatusText(status); text != "" {
			out.Message = strings.ToLower(text)
		}
	}

	n.Metrics.failure(out.TextCode)
	return out
}

// ErrorBody is the decoded error answer of the backend.
type ErrorBody struct {
	Message string
	Fields  map[string][]string
}

// ParseErrorBody reads {"message": ..., "error": ..., "errors": {...}}.
// Field messages may be a string or a list of strings.
func ParseErrorBody(body []byte) ErrorBody {
	var out ErrorBody
	if len(bytes.TrimSpace(body)) == 0 {
		return out
	}

	var raw struct {
		Message any                        `json:"message"`
		Error   any                        `json:"error"`
		Errors  map[string]json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		out.Message = strings.TrimSpace(string(body))
		if len(out.Message) > 500 {
			out.Message = out.Message[:500]
		}
		return out
	}

	out.Message = firstString(raw.Message)
	if out.Message == "" {
		out.Message = firstString(raw.Error)
	}

	if len(raw.Errors) > 0 {
		out.Fields = make(map[string][]string, len(raw.Errors))
		for field, msg := range raw.Errors {
			var list []string
			if err := json.Unmarshal(msg, &list); err == nil {
				out.Fields[field] = list
				continue
			}
			var single string
			if err := json.Unmarshal(msg, &single); err == nil {
				out.Fields[field] = []string{single}
			}
		}
	}
	return out
}

func firstString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
