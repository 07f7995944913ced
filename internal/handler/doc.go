// Package handler implements HTTP request handlers for the lagom API.
//
// ManifestHandler serves manifest CRUD, lint, export, and verification
// trigger endpoints. Middleware provides panic recovery, CORS support,
// and request logging.
//
// All handlers follow REST conventions:
// - GET for retrieval
// - POST for creation and triggers
// - DELETE for removal
//
// Success responses return JSON with appropriate status codes (200, 201,
// 202). Error responses return JSON with an {error, details} structure.
//
// The /events endpoint provides real-time updates via SSE, letting clients
// follow manifest imports, lint runs, and verification results live.
package handler
