// Package adapter implements optional network sweep adapters for waypoint.
//
// A sweeper inspects the device's /24 and reports hosts that look alive, so
// the candidate source can promote them ahead of its blind sequential scan.
// Sweeping is a ranking hint only: every host it reports is still health
// checked before it can be cached.
//
// # Nmap Sweeper
//
// NmapSweeper drives the nmap binary through github.com/Ullaakut/nmap/v3. By
// default it runs a ping scan (-sn). When a backend port is configured it
// scans just that port with host discovery skipped, keeping only hosts where
// the port is open. If nmap is not installed the sweeper reports an error and
// the candidate source carries on without it.
//
// # Event System
//
// Sweepers publish sweep-started / sweep-complete events through an
// EventPublisher for real-time feedback on the operator event stream.
package adapter
