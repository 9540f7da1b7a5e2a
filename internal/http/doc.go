// Package http provides HTTP handlers and middleware for the mentor
// scheduling API.
//
// The router exposes the following endpoints:
//   - GET /mentors/{id}/slots?date=YYYY-MM-DD[&granularity=30m]: the mentor's
//     calendar for a day as fixed-size slots with availability labels.
//   - GET/POST /mentors/{id}/availability, PUT/DELETE /availability/{ruleID}:
//     availability rule management exchanging the `ruleDTO` payload defined in
//     availability_handler.go.
//   - GET/POST /mentors/{id}/blocked-times, PUT/DELETE /blocked-times/{id}:
//     calendar exclusion management exchanging `blockedTimeDTO`.
//   - POST /bookings: admits a new mentoring session or answers 409 when the
//     requested interval conflicts.
//   - GET /sessions?mentor_id=...&from=...&to=...: session history for a mentor.
//   - POST /sessions/{id}/transitions: moves a session through its lifecycle
//     (in_progress, completed, cancelled, no_show) with the payload the target
//     state requires.
//   - POST /sessions/{id}/participants, DELETE /sessions/{id}/participants/{userID}:
//     join and leave group sessions.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
