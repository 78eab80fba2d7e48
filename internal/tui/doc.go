// Package tui implements the interactive terminal client for imagegen.
//
// Built on Bubble Tea, it follows the Elm architecture: AppModel owns two
// screens and the status line they share, and every change arrives as a
// message.
//
// # Screens
//
//   - Generate: prompt, model and index selectors, result count, a spinner
//     while a request runs and a scrollable results pane drawn by ui.Renderer
//   - Endpoints: the gateway's predefined upstreams with the active one
//     marked, a custom URL entry and a refresh key
//
// ctrl+e switches between them and ctrl+c quits from anywhere.
//
// # Event Bridge
//
// The store notifies subscribers on the writer's goroutine and the
// endpoint manager reports status from its monitor goroutine. A Bridge
// turns both into Bubble Tea messages through a buffered channel, so the
// models are only ever touched from the program loop:
//
//	bridge := tui.NewBridge()
//	manager := endpoints.NewManager(client,
//	    endpoints.WithStatusListener(bridge.StatusListener()),
//	    endpoints.WithNoticeListener(bridge.NoticeListener()),
//	)
//	err := tui.Run(ctx, tui.Options{Store: store, Manager: manager, Bridge: bridge, ...})
//
// # Teardown
//
// Quitting stops the connection monitor, detaches the controller and the
// bridge from the store, then closes the store.
package tui
