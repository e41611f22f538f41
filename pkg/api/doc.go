// Package api exposes the access resolver over HTTP. It maps resolver errors
// onto status codes (NotFound → 404, validation → 400, duplicate share → 409,
// anything else → 500 with a generic message) and carries the management
// endpoints used to provision users, groups, resources and shares.
package api
