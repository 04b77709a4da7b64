// Package services defines the error taxonomy shared by the coordinator, the
// HTTP API, and the extraction worker.
//
// Failures are tagged with sentinel markers through Wrap so callers can
// classify them with errors.Is; HTTPStatus and Kind translate a marker into
// a response code or a short label without inspecting message text.
package services
