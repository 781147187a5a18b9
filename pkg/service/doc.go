// Package service runs the tunnel gateway.
//
// TunnelService ties the lower-level components together:
//   - the persisted tunnel configuration (stateful.Service + FSPersistence)
//   - the tunnel lifecycle manager and its engine
//   - the event trace
//   - the REST surface and its mDNS advertisement
//
// Example usage:
//
//	cfg := service.DefaultConfig()
//	cfg.FS = persistence.NewDirFS("/var/lib/wgtunnel")
//	cfg.Engine = engine.NewCommandEngine(engine.CommandConfig{})
//
//	svc, err := service.New(cfg)
//	svc.Begin()
//	go http.ListenAndServe(":8080", svc.Handler())
//	svc.Run(ctx)
//
// # Restarts
//
// An update classified CHANGED_RESTART (enabled, endpoint or address changed)
// raises a restart request. The run loop applies it on its next tick by
// stopping the tunnel, staging the stored configuration and starting again.
// Other changes are stored and take effect at the next restart.
//
// Config.RestartSchedule adds cron-driven restarts, which make the engine
// resolve a DNS endpoint again.
//
// # REST
//
//	GET  /rest/wireguardSettings  stored configuration
//	POST /rest/wireguardSettings  replace configuration (200, or 202 when a restart follows)
//	GET  /rest/wireguardStatus    tunnel status
//	GET  /ws/wireguardStatus      WebSocket, pushes the status whenever it changes
//
// With Config.Security set, status needs a valid bearer token and settings an
// admin token.
package service
