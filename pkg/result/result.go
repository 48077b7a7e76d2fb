// Package result turns a decoded container file into the JSON payload
// returned to clients.
package result

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/ssargent/avroview/pkg/avroerr"
	"github.com/ssargent/avroview/pkg/container"
	"github.com/ssargent/avroview/pkg/datum"
)

// ErrorPrefix starts the message of every decode error payload.
const ErrorPrefix = "An error occurred: "

const replacementChar = "�"

// Options controls normalization.
type Options struct {
	// TagUnions wraps non-null union values as {"<branch type>": value}.
	TagUnions bool
}

// Metadata describes the container encoding.
type Metadata struct {
	Codec      string `json:"codec"`
	SyncMarker string `json:"sync_marker"`
}

// Payload is the successful response body.
type Payload struct {
	Schema       interface{}   `json:"schema"`
	Metadata     Metadata      `json:"metadata"`
	Records      []interface{} `json:"records"`
	TotalRecords int           `json:"total_records"`
}

// ErrorPayload is the response body for a failed decode.
type ErrorPayload struct {
	Kind    avroerr.Kind `json:"-"`
	Message string       `json:"error"`
}

// Assemble builds the payload for a decoded file.
func Assemble(file *container.File, opts Options) (*Payload, error) {
	if file == nil || file.Header == nil {
		return nil, fmt.Errorf("assemble: file has no header")
	}

	schemaJSON, err := parseSchemaJSON(file.Header.SchemaText)
	if err != nil {
		return nil, err
	}

	records := make([]interface{}, len(file.Records))
	for i, rec := range file.Records {
		if records[i], err = Normalize(rec, opts); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}

	return &Payload{
		Schema: schemaJSON,
		Metadata: Metadata{
			Codec:      validText(file.Header.Codec),
			SyncMarker: hex.EncodeToString(file.Header.Sync[:]),
		},
		Records:      records,
		TotalRecords: len(records),
	}, nil
}

// AssembleError builds the error payload for a decode failure.
func AssembleError(kind avroerr.Kind, details string) ErrorPayload {
	return ErrorPayload{Kind: kind, Message: ErrorPrefix + details}
}

// FromError builds the error payload for err.
func FromError(err error) ErrorPayload {
	return AssembleError(avroerr.KindOf(err), err.Error())
}

// parseSchemaJSON re-reads the schema text as generic JSON, keeping numbers
// as written.
func parseSchemaJSON(text string) (interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, avroerr.Wrap(avroerr.KindParse, "schema text is not valid JSON", err)
	}
	return normalizeJSON(v), nil
}

func normalizeJSON(v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		return validText(t)
	case []interface{}:
		for i := range t {
			t[i] = normalizeJSON(t[i])
		}
		return t
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[validText(k)] = normalizeJSON(item)
		}
		return out
	default:
		return v
	}
}

// Normalize converts a decoded value into a JSON-encodable value.
func Normalize(v interface{}, opts Options) (interface{}, error) {
	switch t := v.(type) {
	case nil, bool, int32, int64:
		return t, nil
	case float32:
		if s, ok := nonFinite(float64(t)); ok {
			return s, nil
		}
		return t, nil
	case float64:
		if s, ok := nonFinite(t); ok {
			return s, nil
		}
		return t, nil
	case string:
		return validText(t), nil
	case []byte:
		return validText(string(t)), nil
	case datum.Fixed:
		return validText(string(t)), nil
	case datum.Enum:
		return t.Symbol, nil
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			n, err := Normalize(item, opts)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			n, err := Normalize(item, opts)
			if err != nil {
				return nil, err
			}
			out[validText(k)] = n
		}
		return out, nil
	case *datum.Record:
		fields := t.Fields()
		out := make(Object, len(fields))
		for i, f := range fields {
			n, err := Normalize(f.Value, opts)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			out[i] = Member{Key: f.Name, Value: n}
		}
		return out, nil
	case datum.Union:
		n, err := Normalize(t.Value, opts)
		if err != nil {
			return nil, err
		}
		if !opts.TagUnions || t.Value == nil {
			return n, nil
		}
		return Object{{Key: t.Type, Value: n}}, nil
	default:
		return nil, fmt.Errorf("cannot normalize value of type %T", v)
	}
}

func nonFinite(f float64) (string, bool) {
	switch {
	case math.IsNaN(f):
		return "NaN", true
	case math.IsInf(f, 1):
		return "Infinity", true
	case math.IsInf(f, -1):
		return "-Infinity", true
	default:
		return "", false
	}
}

func validText(s string) string {
	return strings.ToValidUTF8(s, replacementChar)
}
