package httpserver

import "time"

// ShutdownTimeout controls how long to wait for graceful shutdowns. It also
// bounds how long in-flight uploads may keep the process alive.
var ShutdownTimeout = 30 * time.Second

// IdleTimeout closes keep-alive connections with no pending request.
var IdleTimeout = 2 * time.Minute
