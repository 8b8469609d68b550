// ABOUTME: Command gateway that dispatches named commands to the auth service and stores
// ABOUTME: Every outcome, including panics, is folded into the success/data/error envelope

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"

	"github.com/yuin/goldmark"

	"github.com/2389/psyflow/internal/auth"
	"github.com/2389/psyflow/internal/store"
)

// handlerFunc runs one command. The returned value becomes the envelope's data.
type handlerFunc func(ctx context.Context, payload json.RawMessage) (any, error)

// Gateway is the single entry point for host commands.
type Gateway struct {
	store    store.Store
	auth     *auth.Service
	markdown goldmark.Markdown
	logger   *slog.Logger
	handlers map[string]handlerFunc
}

// New creates a Gateway over the given store and auth service.
func New(st store.Store, authSvc *auth.Service, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		store:    st,
		auth:     authSvc,
		markdown: newMarkdown(),
		logger:   logger.With("component", "gateway"),
	}

	g.handlers = map[string]handlerFunc{
		"register":                 g.handleRegister,
		"login":                    g.handleLogin,
		"get_settings":             g.handleGetSettings,
		"update_settings":          g.handleUpdateSettings,
		"create_patient":           g.handleCreatePatient,
		"get_patient":              g.handleGetPatient,
		"list_patients":            g.handleListPatients,
		"update_patient":           g.handleUpdatePatient,
		"delete_patient":           g.handleDeletePatient,
		"create_session":           g.handleCreateSession,
		"get_session":              g.handleGetSession,
		"list_sessions_by_patient": g.handleListSessionsByPatient,
		"update_session":           g.handleUpdateSession,
		"delete_session":           g.handleDeleteSession,
		"render_session_notes":     g.handleRenderSessionNotes,
	}

	return g
}

// Commands returns the supported command names in sorted order.
func (g *Gateway) Commands() []string {
	names := make([]string, 0, len(g.handlers))
	for name := range g.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs command with the given JSON payload and returns its envelope.
// It never panics and never returns driver error text to the caller.
func (g *Gateway) Dispatch(ctx context.Context, command string, payload json.RawMessage) (resp Response) {
	handler, found := g.handlers[command]
	if !found {
		return fail(KindValidation, fmt.Sprintf("unknown command %q", command))
	}

	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("command panicked",
				"command", command,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			resp = fail(KindStorage, msgStorageFailure)
		}
	}()

	data, err := handler(ctx, payload)
	if err != nil {
		kind, message := classify(err)
		switch kind {
		case KindStorage:
			g.logger.Error("command failed", "command", command, "error", err)
		case KindUnauthorized:
			g.logger.Info("authentication failed", "command", command)
		default:
			g.logger.Debug("command rejected", "command", command, "kind", kind.String(), "error", err)
		}
		return fail(kind, message)
	}

	return succeed(data)
}
