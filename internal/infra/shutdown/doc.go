// Package shutdown coordinates graceful process termination.
//
// Components register close hooks as they start; Wait blocks until SIGINT,
// SIGTERM or context cancellation and then runs the hooks last-in first-out
// under a shared deadline:
//
//	sd := shutdown.NewHandler(15 * time.Second)
//	sd.OnShutdown(stores.Close)
//	sd.OnShutdown(srv.Shutdown)
//	err := sd.Wait(ctx)
package shutdown
