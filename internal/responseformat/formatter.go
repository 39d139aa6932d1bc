// Package responseformat writes API payloads as JSON or MessagePack.
package responseformat

import (
	"encoding/json"
	"net/http"

	"github.com/vmihailenco/msgpack/v5"

	apierrors "petrodash/internal/errors"
)

const (
	FormatJSON    = "json"
	FormatMsgPack = "msgpack"

	ContentTypeMsgPack = "application/x-msgpack"
)

// Formatter handles encoding and writing responses in JSON or MessagePack format
type Formatter struct{}

// NewFormatter creates a new response formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Negotiate returns the format requested by the format query parameter or
// the Accept header. JSON is the default; unknown formats are an error.
func (f *Formatter) Negotiate(req *http.Request) (string, error) {
	switch format := req.URL.Query().Get("format"); format {
	case "", FormatJSON:
		if format == "" && req.Header.Get("Accept") == ContentTypeMsgPack {
			return FormatMsgPack, nil
		}
		return FormatJSON, nil
	case FormatMsgPack:
		return FormatMsgPack, nil
	default:
		return "", apierrors.UnsupportedFormat(format)
	}
}

// WriteResponse writes data with the given status in the negotiated format
func (f *Formatter) WriteResponse(w http.ResponseWriter, req *http.Request, status int, data any) error {
	format, err := f.Negotiate(req)
	if err != nil {
		return err
	}
	if format == FormatMsgPack {
		return f.writeMsgPack(w, status, data)
	}
	return f.writeJSON(w, status, data)
}

func (f *Formatter) writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

func (f *Formatter) writeMsgPack(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", ContentTypeMsgPack)
	w.WriteHeader(status)
	encoder := msgpack.NewEncoder(w)
	encoder.SetCustomStructTag("json") // Use json tags for MessagePack
	return encoder.Encode(data)
}
