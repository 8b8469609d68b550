// Package gateway exposes psyflow's persistence and authentication core as a
// set of named commands.
//
// # Overview
//
// The host application sends a command name and a JSON payload. The gateway
// decodes the payload into the command's typed request, validates it, makes a
// single call into auth.Service or the store, and wraps the outcome in an
// envelope:
//
//	{"success": true,  "data": {...}, "error": null}
//	{"success": false, "data": null,  "error": "patient not found"}
//
// # Commands
//
//   - register, login
//   - get_settings, update_settings
//   - create_patient, get_patient, list_patients, update_patient, delete_patient
//   - create_session, get_session, list_sessions_by_patient, update_session,
//     delete_session, render_session_notes
//
// Payload keys are camelCase and unknown keys are rejected. For update_patient and update_session an
// omitted or null field keeps its stored value, and an explicit "" clears an
// optional field.
//
// # Errors
//
// Failures carry an ErrorKind (validation, conflict, not_found, unauthorized,
// storage). Every authentication failure reads "invalid email or password"
// and a duplicate email reads "registration failed". Storage errors and
// recovered panics are logged and reported as "internal storage error".
//
// # Stdio Transport
//
// ServeStdio speaks newline-delimited JSON:
//
//	-> {"id": 1, "command": "list_patients", "payload": {"userId": "..."}}
//	<- {"id": 1, "success": true, "data": [], "error": null}
//
// Stdout carries only envelopes, so logging must go to stderr.
package gateway
