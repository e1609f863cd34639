// Package domain models Ontario emergency-room wait-time observations.
//
// # Data Source
//
// Wait times originate from hospital-published ER status pages. The upstream
// collector service scrapes them on a cron schedule and publishes one snapshot
// message per cycle to the Kafka source topic:
//
//	{"timestamp": "2025-11-09T23:52:26", "data": {"<hospital name>": "<wait text>", ...}}
//
// Snapshot timestamps carry no zone offset; they are stamped by the collector
// in the clinical time zone (America/Toronto for the current feeds) and parsed
// here against an explicit location, never the process-local zone.
//
// # Wait-Time Text Conventions
//
// Three shapes appear in source data, matched in this priority order:
//
//	"Not available"                     →  unavailable marker, no duration.
//	"<low> to <high>"                   →  range; each bound is a duration
//	                                       expression, result is the mean of
//	                                       both bounds rounded to a tenth of a
//	                                       minute. Some feeds drop the space
//	                                       after "to" ("2 hr 44 min to4 hr 25 min").
//	"<H> hr <M> min"                    →  single duration; either component
//	                                       may be absent. "1 hr or less" means
//	                                       exactly one hour.
//
// Anything else is a parse failure. A failure is never coerced to zero
// minutes: zero is indistinguishable from a genuinely short wait, so the
// original text travels with the error instead. Hour components above 48 or
// minute components above 59 still parse but mark the result suspect for
// downstream quality checks.
//
// # Hospital Names
//
// Source feeds disagree on hospital naming ("Toronto General (University
// Health Network)" vs "Toronto General Hospital"). Raw names are resolved to
// one stable identity by the refdata package before any record is emitted;
// the domain types here only ever carry resolved identities.
//
// # ID Generation
//
// Record IDs are deterministic SHA-256 hashes of hospital_id|collected_at|
// wait. Reprocessing the same snapshot produces the same IDs, so downstream
// upserts stay idempotent under replay.
package domain
