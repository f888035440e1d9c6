// Package policy resolves per-organization governance policies.
//
// A resolution merges three layers into one immutable Config:
//
//  1. System defaults (from configuration) fill every field.
//  2. The tenant's stored policy row, if one exists, overrides the fields
//     it sets.
//  3. Trial-tier ceilings clamp the merged result for trial tenants so a
//     trial organization never gets more than the trial allows, and never
//     less restrictive than its own stored policy.
//
// Resolution is a total function: missing rows, store failures, and
// malformed rows all degrade to the system defaults. A policy mistake must
// never take a tenant offline.
package policy
