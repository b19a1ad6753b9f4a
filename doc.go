// Package openaq is a batch ingestion pipeline for OpenAQ air-quality
// data. One run pulls the locations inside each configured geographic
// zone, the sensors at each location, and the raw measurement pages
// for each sensor over a requested time window, and lands everything
// as date-partitioned JSON in a bronze-layer store.
//
// The pieces compose top-down with no cycles:
//
// 1. Orchestrator
//
//	Loads zone definitions, fixes the run's UTC ingest date once, runs
//	the zone processor per zone in order, and folds the per-zone stats
//	into a run total. A run with errors is reported as a partial
//	failure rather than aborting the remaining zones.
//
// 2. Processor
//
//	The per-zone state machine: locations, then sensors, then
//	measurements. Failures on a single location or sensor are counted
//	and skipped; the zone carries on.
//
// 3. Client and fetchers
//
//	A rate-limit-aware HTTP client with bounded retries, and three
//	cursor-paginated fetchers on top of it. Fetchers never touch
//	storage.
//
// 4. Store
//
//	The bronze-layer capability set, implemented by file.Store for a
//	local directory tree and s3.Store for an object bucket, both
//	writing the identical partition key scheme.
package openaq
