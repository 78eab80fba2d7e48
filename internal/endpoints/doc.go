// Package endpoints manages which upstream image API the gateway uses and
// watches whether it is reachable.
//
// A Manager loads the predefined endpoints from the gateway, switches the
// active one on request, and polls /api-status on a Monitor. Status
// transitions and user notices are delivered to listeners given at
// construction; the terminal app turns them into screen updates.
package endpoints
