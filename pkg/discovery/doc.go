// Package discovery announces the tunnel gateway on the local network via
// mDNS/DNS-SD.
//
// # Service (_wgtunnel._tcp)
//
// The gateway advertises one instance of the service while its REST surface is
// listening. The instance name defaults to the host name.
// TXT records include: path (status resource), en (tunnel enabled, 0/1),
// st (tunnel state) and optionally ver (software version).
//
// The TXT set is refreshed in place whenever the tunnel state changes, so
// browsers see status without polling the REST surface.
package discovery
