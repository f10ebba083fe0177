// Package aggregates defines the write boundaries of the ritual domain.
//
// Contracts here avoid persistence details. Implementations live in internal/data/aggregates
// and own their transactions.
package aggregates
