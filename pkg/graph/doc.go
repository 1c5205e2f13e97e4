// Package graph is a minimal client for the three Instagram Graph API calls
// that publish a single image: create a media container, query its
// processing status, and publish it.
//
// Every call performs one request/response exchange (plus opt-in retries)
// and normalizes the outcome into a value or a typed error from pkg/errors:
//
//	client := graph.NewClient(cfg.Graph.Endpoint(), 30*time.Second,
//	    graph.WithLogger(log))
//
//	handle, err := client.CreateContainer(ctx, creds, imageURL, caption)
//	status, err := client.ContainerStatus(ctx, creds, handle)
//	mediaID, err := client.PublishContainer(ctx, creds, handle)
//
// Failures the Graph API reports carry its error.message verbatim.
package graph
