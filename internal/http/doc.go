// Package http provides the JSON API handlers and middleware for the
// cleaning roster service.
//
// Public endpoints (any caller, acting user named in the body):
//   - POST /cleanings/{id}/join: join the cleaning. Body: {"external_id"}.
//   - POST /cleanings/{id}/leave: leave the cleaning. Body: {"external_id"}.
//   - POST /cleanings/{id}/finish: confirm the cleaning done. Body: {"external_id"}.
//   - GET /cleanings/{id}: cleaning with template and roster.
//   - GET /cleanings?from=YYYY-MM-DD&to=YYYY-MM-DD: cleanings intersecting the range.
//
// Manager endpoints (bearer token checked against a bcrypt hash):
//   - POST /cleanings: schedule a weekly run from a template.
//   - DELETE /cleanings/{id}: remove a cleaning and its thread.
//   - GET/POST /templates, PUT/DELETE /templates/{id}: template management.
//   - POST /users/sync: upsert the membership roster.
//   - GET /users: list known users.
//   - POST /lock: toggle the leave lock. Body: {"locked"}.
//   - GET /reports/users?from&to and GET /reports/templates: text reports.
//
// Request/response DTOs live alongside their handlers.
package http
