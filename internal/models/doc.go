// Package models defines the core domain entities of the shared ledger.
//
// # Entities
//
//   - Transaction: an expense paid by one user, optionally shared with a group
//   - Split: a debt record for one non-payer participant's share
//   - RecurringRule: a template that regenerates a transaction periodically
//   - GroupMembership: read-only group roster input (who is in which group)
//   - Settlement: a confirmed transfer between two members
//   - User: a registered account (the auth surface the engine states it needs)
//
// # Money
//
// All amounts are int64 minor units (pare, cents). Integer arithmetic keeps
// the allocator and the netting engine exact; currency metadata (how many
// minor digits a code has) comes from go-money. Conversion to the base
// currency happens in internal/currency and is the only place decimals
// appear.
//
// # Design principles
//
//  1. Relationships are ID strings, never pointers, to avoid cycles
//  2. Loosely-typed fields (currency, frequency) are closed enums validated
//     at the boundary
//  3. Splits never exist without their parent transaction
package models
