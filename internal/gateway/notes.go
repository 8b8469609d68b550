// ABOUTME: Renders session notes from Markdown to HTML using goldmark
// ABOUTME: Raw HTML inside notes is dropped by the renderer rather than passed through

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// newMarkdown builds the converter used for notes. GFM adds tables, task
// lists and strikethrough; unsafe HTML stays disabled.
func newMarkdown() goldmark.Markdown {
	return goldmark.New(goldmark.WithExtensions(extension.GFM))
}

// RenderNotes converts Markdown notes to HTML.
func (g *Gateway) RenderNotes(notes string) (string, error) {
	var buf bytes.Buffer
	if err := g.markdown.Convert([]byte(notes), &buf); err != nil {
		return "", fmt.Errorf("rendering notes: %w", err)
	}
	return buf.String(), nil
}

func (g *Gateway) handleRenderSessionNotes(ctx context.Context, payload json.RawMessage) (any, error) {
	req, err := decode[EntityRequest](payload)
	if err != nil {
		return nil, err
	}

	session, err := g.store.GetSession(ctx, req.ID, req.UserID)
	if err != nil {
		return nil, scoped("session", err)
	}

	html, err := g.RenderNotes(session.Notes)
	if err != nil {
		return nil, err
	}
	return RenderedNotes{ID: session.ID, HTML: html}, nil
}
