// ABOUTME: Command handlers for identity, patients and sessions
// ABOUTME: Each handler decodes its typed request and makes exactly one service or store call

package gateway

import (
	"context"
	"encoding/json"
)

func (g *Gateway) handleRegister(ctx context.Context, payload json.RawMessage) (any, error) {
	req, err := decode[RegisterRequest](payload)
	if err != nil {
		return nil, err
	}

	user, err := g.auth.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	return newUser(user), nil
}

func (g *Gateway) handleLogin(ctx context.Context, payload json.RawMessage) (any, error) {
	req, err := decode[LoginRequest](payload)
	if err != nil {
		return nil, err
	}

	user, err := g.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	return newUser(user), nil
}

func (g *Gateway) handleGetSettings(ctx context.Context, payload json.RawMessage) (any, error) {
	req, err := decode[UserRequest](payload)
	if err != nil {
		return nil, err
	}

	settings, err := g.store.GetSettings(ctx, req.UserID)
	if err != nil {
		return nil, scoped("settings", err)
	}
	return newSettings(settings), nil
}

func (g *Gateway) handleUpdateSettings(ctx context.Context, payload json.RawMessage) (any, error) {
	req, err := decode[UpdateSettingsRequest](payload)
	if err != nil {
		return nil, err
	}

	settings, err := g.store.UpdateSettings(ctx, req.UserID, req.update())
	if err != nil {
		return nil, scoped("settings", err)
	}
	return newSettings(settings), nil
}

func (g *Gateway) handleCreatePatient(ctx context.Context, payload json.RawMessage) (any, error) {
	req, err := decode[CreatePatientRequest](payload)
	if err != nil {
		return nil, err
	}

	patient := req.patient()
	if err := g.store.CreatePatient(ctx, patient); err != nil {
		return nil, scoped("user", err)
	}
	return newPatient(patient), nil
}

func (g *Gateway) handleGetPatient(ctx context.Context, payload json.RawMessage) (any, error) {
	req, err := decode[EntityRequest](payload)
	if err != nil {
		return nil, err
	}

	patient, err := g.store.GetPatient(ctx, req.ID, req.UserID)
	if err != nil {
		return nil, scoped("patient", err)
	}
	return newPatient(patient), nil
}

func (g *Gateway) handleListPatients(ctx context.Context, payload json.RawMessage) (any, error) {
	req, err := decode[UserRequest](payload)
	if err != nil {
		return nil, err
	}

	patients, err := g.store.ListPatients(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	return newPatients(patients), nil
}

func (g *Gateway) handleUpdatePatient(ctx context.Context, payload json.RawMessage) (any, error) {
	req, err := decode[UpdatePatientRequest](payload)
	if err != nil {
		return nil, err
	}

	if err := g.store.UpdatePatient(ctx, req.ID, req.UserID, req.upd); err != nil {
		return nil, scoped("patient", err)
	}
	return nil, nil
}

func (g *Gateway) handleDeletePatient(ctx context.Context, payload json.RawMessage) (any, error) {
	req, err := decode[EntityRequest](payload)
	if err != nil {
		return nil, err
	}

	if err := g.store.DeletePatient(ctx, req.ID, req.UserID); err != nil {
		return nil, scoped("patient", err)
	}
	return nil, nil
}

func (g *Gateway) handleCreateSession(ctx context.Context, payload json.RawMessage) (any, error) {
	req, err := decode[CreateSessionRequest](payload)
	if err != nil {
		return nil, err
	}

	session := req.session()
	if err := g.store.CreateSession(ctx, session); err != nil {
		return nil, scoped("patient", err)
	}
	return newSession(session), nil
}

func (g *Gateway) handleGetSession(ctx context.Context, payload json.RawMessage) (any, error) {
	req, err := decode[EntityRequest](payload)
	if err != nil {
		return nil, err
	}

	session, err := g.store.GetSession(ctx, req.ID, req.UserID)
	if err != nil {
		return nil, scoped("session", err)
	}
	return newSession(session), nil
}

func (g *Gateway) handleListSessionsByPatient(ctx context.Context, payload json.RawMessage) (any, error) {
	req, err := decode[ListSessionsRequest](payload)
	if err != nil {
		return nil, err
	}

	sessions, err := g.store.ListSessionsByPatient(ctx, req.PatientID, req.UserID)
	if err != nil {
		return nil, err
	}
	return newSessions(sessions), nil
}

func (g *Gateway) handleUpdateSession(ctx context.Context, payload json.RawMessage) (any, error) {
	req, err := decode[UpdateSessionRequest](payload)
	if err != nil {
		return nil, err
	}

	if err := g.store.UpdateSession(ctx, req.ID, req.UserID, req.upd); err != nil {
		return nil, scoped("session", err)
	}
	return nil, nil
}

func (g *Gateway) handleDeleteSession(ctx context.Context, payload json.RawMessage) (any, error) {
	req, err := decode[EntityRequest](payload)
	if err != nil {
		return nil, err
	}

	if err := g.store.DeleteSession(ctx, req.ID, req.UserID); err != nil {
		return nil, scoped("session", err)
	}
	return nil, nil
}
