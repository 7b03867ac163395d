// Package table defines the single artifact shape shared by every tier:
// a rectangular Table, the Single/Multiple Result union, the table-key
// Filter applied at the resolver boundary, and the Provenance record
// attached to final results. Tiers may only produce Result values, which
// eliminates the shape drift the resolver contract forbids.
package table
