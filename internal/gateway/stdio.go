// ABOUTME: Newline-delimited JSON transport for the gateway over a reader/writer pair
// ABOUTME: One request object per line in, one envelope per line out, ids echoed

package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// maxFrameSize bounds a single request line. Session notes are the largest field.
const maxFrameSize = 4 << 20

// Request is one frame on the stdio transport.
type Request struct {
	ID      json.RawMessage `json:"id,omitempty"`
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServeStdio reads newline-delimited requests from r and writes one envelope per
// line to w until r reaches EOF or ctx is cancelled. Requests are handled in order.
// Blank lines are skipped; an undecodable line gets a validation envelope.
// Cancellation is observed while waiting for input; a read already blocked on r
// is abandoned rather than interrupted.
func (g *Gateway) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
		for scanner.Scan() {
			select {
			case lines <- bytes.Clone(scanner.Bytes()):
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	out := bufio.NewWriter(w)
	enc := json.NewEncoder(out)

	g.logger.Info("serving commands on stdio")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var line []byte
		select {
		case <-ctx.Done():
			g.logger.Info("stdio serving cancelled")
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return g.finishStdio(<-readErr)
			}
			line = l
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		if len(line) == 0 {
			continue
		}

		resp := g.handleFrame(ctx, line)
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
		if err := out.Flush(); err != nil {
			return fmt.Errorf("flushing response: %w", err)
		}
	}
}

func (g *Gateway) finishStdio(err error) error {
	if err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return fmt.Errorf("request exceeds %d bytes: %w", maxFrameSize, err)
		}
		return fmt.Errorf("reading requests: %w", err)
	}

	g.logger.Info("stdio input closed")
	return nil
}

func (g *Gateway) handleFrame(ctx context.Context, line []byte) Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		g.logger.Debug("discarding malformed frame", "error", err)
		return fail(KindValidation, "request is not valid JSON")
	}
	if req.Command == "" {
		resp := fail(KindValidation, "command is required")
		resp.ID = req.ID
		return resp
	}

	resp := g.Dispatch(ctx, req.Command, req.Payload)
	resp.ID = req.ID
	return resp
}
