// Package client provides a minimal HTTP/1.1 client that writes requests
// as raw bytes over pooled connections and parses responses itself.
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithTimeout(10 * time.Second),
//		client.WithMaxConns(4),
//		client.WithUserAgent("myapp/1.0"),
//	)
//	defer c.Close(ctx)
//
// # Making Requests
//
// [Client.Request] returns the parsed [response.Response]:
//
//	resp, err := c.Request(ctx, http.MethodGet, "https://api.example.com/v1/resource")
//
// Bodies are built with the [part] package and attached with [WithPart]:
//
//	form := part.NewURLEncoded()
//	form.AddField("name", "alice")
//	form.Build()
//	resp, err := c.Request(ctx, http.MethodPost, u, client.WithPart(form))
//
// [Client.Do] checks the status code and decodes a JSON body:
//
//	err = c.Do(ctx, http.MethodGet, u, http.StatusOK, client.WithDestination(&result))
//
// # Errors
//
// Failures match one of [ErrConnectFailure], [ErrTimeout],
// [ErrMalformedResponse] or [ErrUnexpectedStatusCode] via [errors.Is].
// Connections are never retried.
//
// # Async Requests
//
// [Client.RequestAsync] runs a request in a [batch.Queue], which bounds
// how many requests run at once:
//
//	q := batch.NewQueue(4)
//	for _, u := range urls {
//		c.RequestAsync(ctx, q, http.MethodGet, u)
//	}
//	err = q.Wait()
package client
