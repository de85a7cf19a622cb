// Package models defines the core domain models for Messbook.
//
// # Models
//
//   - Mess: a household group sharing meals and expenses, with one manager
//   - Member: a person in a mess, identified by the identity provider's subject id
//   - MealStatus: one member's meal counts for one calendar date
//   - MealSettings: per-mess meal flags and cutoff times
//   - Transaction: a deposit or expense moving through the approval workflow
//   - MonthlyReport / MemberSettlement: the computed monthly settlement
//   - Notification / DeviceToken: push delivery records
//
// # Design Principles
//
//  1. **IDs are opaque strings**: member ids come straight from the identity
//     provider; everything else is a UUID assigned by the store
//  2. **Avoid circular references**: relationships use id strings, not pointers
//  3. **Derived values are caches**: Member.Balance and every report figure can
//     be recomputed from meal statuses and approved transactions at any time
package models
