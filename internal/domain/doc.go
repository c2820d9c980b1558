// Package domain models New Mexico restaurant health-inspection data.
//
// # Data Sources
//
// Records come from two government systems with very different shapes:
//
//   - NMED: the New Mexico Environment Department publishes inspections for
//     cities outside Bernalillo County through an ArcGIS FeatureServer (with
//     an Apigee REST endpoint as fallback). Rows arrive as flat attribute
//     maps (FACILITY_NAME, ADDRESS, CITY, INSPECTION_DATE, OUTCOME, ...).
//   - ABQ: the City of Albuquerque publishes weekly PDF inspection reports.
//     An extraction step (out of scope here) reduces each report to rows of
//     text fields; summary pages carry "NAME - ADDRESS" headers followed by
//     MM/DD/YYYY inspection lines, detail pages carry "Violation:" lines.
//
// Both are normalized into [InspectionRecord] and scored. A full pipeline run
// replaces the prior dataset wholesale; nothing is patched incrementally.
//
// # Identity
//
// Record IDs are composed as source:city:establishment:date (e.g.
// "nm:santafe:la-choza:2026-03-14"). They are stable per source but not
// globally unique across sources describing the same establishment, so
// grouping identity is computed separately: the lower-cased, trimmed raw
// establishment name ([IdentityKey]). Address is deliberately not part of the
// grouping key; see [AggregateOptions.GroupByAddress] for the opt-out.
//
// # Scoring
//
// [ScoreInspection] is a pure function of the inspection, the
// establishment's history, and the evaluation time. Day distances are whole
// truncated 24-hour periods. Rules are additive:
//
//	closure within 180d                       +3.0
//	conditional/failed within 180d            +2.0
//	critical violations within 365d           +0.5 each, capped at +2.0
//	>=2 adverse inspections within 365d       +0.5
//
// Severity is rounded half away from zero to one decimal place and
// classified on demand: >=3.0 high, >=1.5 medium, otherwise low.
//
// The aggregate (establishment-level) score in [Aggregate] intentionally
// re-derives a coarser signal instead of summing member severities, and adds
// a flat +5.0 when the establishment is currently closed. Groups scoring
// zero are dropped from the output.
//
// # Name Normalization
//
// [DisplayName] cleans the raw names found in the feeds: permit suffixes
// like "-PT01603" and bare store numbers are stripped, words are title-cased
// with a fixed abbreviation set (LLC, NW, ABQ, ...) and roman numerals kept
// upper-case, stop words stay lower-case, and possessive apostrophes are
// restored for known brands ("WENDYS" -> "Wendy's"). The transform is a
// deterministic best-effort heuristic, not a general title-caser.
package domain
