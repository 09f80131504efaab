// Package app wires the impact analysis application together: logger,
// OpenTelemetry providers, the analysis and health services, the chi router
// and the HTTP server.
//
// # Initialization Flow
//
//	1. Initialize logging from the loaded configuration
//	2. Initialize OpenTelemetry (Prometheus meter provider, optional tracer)
//	3. Create the analysis and health services
//	4. Build the router and middleware chain
//	5. Create the HTTP server from the server timeouts
//
// # Modes
//
// The same Application backs every command. serve calls Run, which starts
// the server, loads the initial analysis in the background and shuts down
// gracefully on SIGINT or SIGTERM. run calls RunBatch and validate calls
// Validate; both release resources with Close.
//
// # Middleware Order
//
//	RequestID → RealIP → OTel → ErrorMiddleware → Recovery →
//	SecurityHeaders → CORS → RateLimiter
//
// API routes under /api additionally get JSON content negotiation, a request
// timeout and Content-Type validation.
package app
