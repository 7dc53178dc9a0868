package isolation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"sc-go/internal/sc"
)

// Serve handles a single request for p: it reads one Request from r and
// writes one Response to w. Plugin errors are reported in the response; the
// returned error covers only I/O and malformed requests.
func Serve(ctx context.Context, p sc.Plugin, r io.Reader, w io.Writer) error {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return fmt.Errorf("decoding request: %w", err)
	}

	resp := handle(ctx, p, req)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	return nil
}

func handle(ctx context.Context, p sc.Plugin, req Request) (resp *Response) {
	resp = &Response{ID: req.ID}
	defer func() {
		if r := recover(); r != nil {
			resp = &Response{ID: req.ID, Error: fmt.Sprintf("plugin panicked: %v", r)}
		}
	}()

	switch req.Method {
	case MethodAvailable:
		resp.Available = p.IsAvailable(ctx)
	case MethodScan:
		items, err := p.Scan(ctx)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Items = items
	case MethodClean:
		resp.Result, resp.Error = result(p.Clean(ctx, req.Items))
	case MethodCleanDryRun:
		dr, ok := p.(sc.DryRunner)
		if !ok {
			resp.Result = &sc.CleanResult{
				Success:      true,
				CleanedCount: len(req.Items),
				TotalSize:    sc.TotalSize(req.Items),
				Errors:       []string{},
				DryRun:       true,
			}
			break
		}
		resp.Result, resp.Error = result(dr.CleanDryRun(ctx, req.Items))
	default:
		resp.Error = fmt.Sprintf("unknown method %q", req.Method)
	}
	return resp
}

func result(res *sc.CleanResult, err error) (*sc.CleanResult, string) {
	if err != nil {
		return nil, err.Error()
	}
	return res, ""
}
