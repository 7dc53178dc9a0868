package isolation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"sc-go/internal/sc"
)

// Methods understood by a plugin worker.
const (
	MethodScan        = "scan"
	MethodClean       = "clean"
	MethodCleanDryRun = "clean_dry_run"
	MethodAvailable   = "available"
)

// Request is written as one JSON document to the worker's stdin.
type Request struct {
	ID     string             `json:"id"`
	Method string             `json:"method"`
	Items  []sc.CleanableItem `json:"items,omitempty"`
}

// Response is the worker's JSON reply on stdout.
type Response struct {
	ID        string             `json:"id"`
	Items     []sc.CleanableItem `json:"items,omitempty"`
	Result    *sc.CleanResult    `json:"result,omitempty"`
	Available bool               `json:"available,omitempty"`
	Error     string             `json:"error,omitempty"`
}

var errNoResponse = errors.New("no JSON response on stdout")

// decodeResponse parses the first JSON object in out. Anything printed
// before the first '{' is ignored.
func decodeResponse(out []byte) (*Response, error) {
	start := bytes.IndexByte(out, '{')
	if start < 0 {
		return nil, errNoResponse
	}
	var resp Response
	if err := json.NewDecoder(bytes.NewReader(out[start:])).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &resp, nil
}
