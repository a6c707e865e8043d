// Package replcraft provides a Go SDK for ReplCraft structure servers.
//
// The SDK multiplexes many concurrent logical requests over one WebSocket
// connection, correlates asynchronous responses back to their callers, and
// routes server-pushed events (block updates, transactions, context
// lifecycle) to subscribers, exposing four core operations:
//
//   - Connect: dial the server derived from a structure token and authenticate
//   - Context.Request / the typed operation catalogue: request/response with
//     automatic id correlation
//   - OnBlockUpdate, OnTransact, OnContextOpened, ...: subscribe to pushed
//     events, globally or scoped to one context
//   - SetFuelRetry: transparently re-attempt requests that fail with
//     "out of fuel" once fuel replenishes
//
// Basic usage:
//
//	client, err := replcraft.NewClient(replcraft.Config{
//	    Token: os.Getenv("REPLCRAFT_TOKEN"),
//	}, replcraft.LogErrors(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	structure := client.RootContext()
//	block, err := structure.GetBlock(ctx, 0, 0, 0)
//
//	structure.OnBlockUpdate(func(ev replcraft.BlockUpdateEvent) {
//	    fmt.Println(ev.Cause, ev.Block)
//	})
package replcraft
