// Package controller runs image generations for the terminal client.
//
// Generate walks one request through validating, requesting and then
// success or failure. Only one generation runs at a time; a second call
// made meanwhile is ignored. The controller never draws results itself:
// it writes them into the state store and its store subscription calls the
// View.
package controller
