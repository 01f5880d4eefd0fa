// Package wave implements send-wave lifecycle management.
//
// A wave is one batch send: a filtered subset of a campaign's recipients
// crossed with one template. The service creates waves (snapshotting the
// target count), starts them (re-enumerating recipients, seeding the
// dispatch pipeline) and reports their status. It depends on the Repository
// interface defined in this package and should never import from api/.
//
// Repository implementations live in repository/postgres/.
package wave
