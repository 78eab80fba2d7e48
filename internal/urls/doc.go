// Package urls provides centralized constants for all documentation URLs used
// throughout the application.
//
// All links are defined here so they can be updated in a single location
// before release.
//
// Usage:
//
//	import "github.com/muurk/imagegen/internal/urls"
//
//	fmt.Printf("For more information, see: %s\n", urls.GatewaySetup)
package urls
