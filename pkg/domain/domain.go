// Package domain declares the system entity classes every installation
// carries: login users, branch stations, system parameters and units.
// Each class is table metadata registered at init plus a thin typed wrapper
// over orm.Record; application classes follow the same pattern.
package domain
