// Package api exposes the task REST endpoints over gin: paginated listing,
// task creation, a health probe and the Prometheus metrics page.
package api
