// Package query validates evidence queries and fills in their defaults.
package query
