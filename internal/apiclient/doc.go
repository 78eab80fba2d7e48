// Package apiclient is the HTTP client for an imagegen gateway.
//
// Every failing call returns an *APIError whose Type is one of timeout,
// network, server_error or unknown, and whose Message is ready to show to
// the user. When the server answered with an error payload, Response holds
// it decoded as a ServerError; its Kind drives the message the controller
// picks.
//
// The probe calls (GetConfig, CheckHealth, CheckAPIStatus) never return an
// error. They return nil when the server is unavailable and log why.
//
// Basic usage:
//
//	client := apiclient.NewClient("http://localhost:8000")
//	client.SetTimeout(2 * time.Minute)
//
//	result, err := client.GenerateImage(ctx, protocol.GenerationRequest{
//	    Prompt:    "a cat",
//	    ModelType: "l14",
//	    IndexType: "cos",
//	    SearchNum: 4,
//	    QuerySend: true,
//	}, "")
//	if err != nil {
//	    fmt.Println(apiclient.GetShortErrorMessage(err))
//	    fmt.Println(apiclient.GetTroubleshootingHint(err))
//	}
package apiclient
