// Package sdk is a Go client for the paperask HTTP API.
//
// Basic usage:
//
//	client, err := sdk.New("http://localhost:5001")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	answer, err := client.Ask(ctx, sdk.AskRequest{
//		Question: "What does the paper conclude about attention heads?",
//		K:        6,
//	})
//	if errors.Is(err, sdk.ErrIndexNotFound) {
//		// run the ingest command first
//	}
//
// API error responses are mapped to sentinel errors where a caller can act
// on them (ErrIndexNotFound, ErrLoginRequired, ...); every API failure also
// unwraps to an *APIError carrying the raw status, code and message.
package sdk
