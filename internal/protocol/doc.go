// Package protocol defines the HTTP contract between the imagegen client and
// the gateway.
//
// Both sides import these types, so a payload written by the gateway decodes
// without loss in the client and the other way round. Field names follow the
// wire format: request bodies use camelCase, every other document uses
// snake_case.
//
// # Endpoints
//
//   - POST /create, POST /create/{api}: run a generation
//   - GET /config: frontend configuration and supported settings
//   - GET /health: liveness of the gateway itself
//   - GET /api-status: reachability of the upstream image API
//   - GET /api-endpoints: predefined upstream URLs and the active one
//   - POST /change-api-url: switch the upstream URL
//
// # Errors
//
// Every non-2xx response carries an ErrorBody. ErrorType tells the client
// which message family to show; StatusCode repeats the upstream status for
// api_error.
//
// # Images
//
// Images travel as bare base64 PNG. Prefix them with ImageDataURIPrefix to
// get a data URI.
package protocol
