// Package services sits between the HTTP handlers and the pipeline. It
// starts and tracks runs, reports service health and exposes the files a
// run leaves in the processed directory.
//
// Services take their collaborators and a *slog.Logger through their
// constructors and return errors from internal/errors so handlers can map
// them onto problem responses.
package services
