package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/gzip"
)

const (
	// decodeChunkSize is the step by which the decompression buffer grows.
	decodeChunkSize = 16 * 1024
	// maxDecodedBytes bounds the decompressed envelope size.
	maxDecodedBytes = 256 << 20
)

// ErrDecode is wrapped by every Decode failure. Callers treat it as
// "no prior history".
var ErrDecode = errors.New("history: cannot decode envelope")

// State is the persisted position inside the log.
type State struct {
	CurrentIndex int `json:"currentIndex"`
}

// Envelope is the on-disk structure. The log and the index are written
// together so they round-trip as one unit.
type Envelope struct {
	History []Snapshot `json:"history"`
	State   State      `json:"state"`
}

// Encode serializes env as JSON and gzip-compresses it at the fastest level.
func Encode(env Envelope) ([]byte, error) {
	if env.History == nil {
		env.History = []Snapshot{}
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return nil, fmt.Errorf("encode history: compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("encode history: compress: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode decompresses and parses an envelope produced by Encode. All errors
// wrap ErrDecode.
func Decode(data []byte) (Envelope, error) {
	if len(data) == 0 {
		return Envelope{}, fmt.Errorf("%w: empty input", ErrDecode)
	}
	raw, err := decompress(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return parseEnvelope(raw)
}

// decompress inflates data into a buffer grown in fixed-size chunks; the
// output size is not known in advance.
func decompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip header: %w", err)
	}
	defer zr.Close()

	out := make([]byte, 0, decodeChunkSize)
	for {
		if len(out) == cap(out) {
			if len(out) >= maxDecodedBytes {
				return nil, fmt.Errorf("decompressed envelope exceeds %d bytes", maxDecodedBytes)
			}
			out = append(out, make([]byte, decodeChunkSize)...)[:len(out)]
		}
		n, err := zr.Read(out[len(out):cap(out)])
		out = out[:len(out)+n]
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("gzip stream: %w", err)
		}
	}
}

// parseEnvelope rejects input without a history array. Below that level it
// is lenient: a malformed entry or field decodes to its zero value, so one
// bad entry does not cost the whole log.
func parseEnvelope(raw []byte) (Envelope, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil || top == nil {
		return Envelope{}, fmt.Errorf("%w: envelope is not an object", ErrDecode)
	}

	historyRaw, ok := top["history"]
	if !ok {
		return Envelope{}, fmt.Errorf("%w: missing history field", ErrDecode)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(historyRaw, &entries); err != nil || entries == nil {
		return Envelope{}, fmt.Errorf("%w: history is not an array", ErrDecode)
	}

	env := Envelope{History: make([]Snapshot, 0, len(entries))}
	for _, entryRaw := range entries {
		fields := objectFields(entryRaw)
		env.History = append(env.History, NewSnapshot(stringField(fields, "text"), intField(fields, "cursor")))
	}
	env.State.CurrentIndex = intField(objectFields(top["state"]), "currentIndex")
	return env, nil
}

// objectFields returns the members of a JSON object, or nil for anything
// else.
func objectFields(raw json.RawMessage) map[string]json.RawMessage {
	var fields map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &fields) != nil {
		return nil
	}
	return fields
}

func stringField(fields map[string]json.RawMessage, key string) string {
	var v string
	if json.Unmarshal(fields[key], &v) != nil {
		return ""
	}
	return v
}

// intField returns 0 unless the member is a JSON number with an integral
// value that fits in 32 bits.
func intField(fields map[string]json.RawMessage, key string) int {
	raw, ok := fields[key]
	if !ok {
		return 0
	}
	var f float64
	if json.Unmarshal(raw, &f) != nil || f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}
