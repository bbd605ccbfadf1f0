// Package photoflow implements an asynchronous photo-ingestion pipeline with
// pluggable record stores and blob storage backends.
//
// It exposes a single Service interface covering the presigned-upload
// handshake (credential issuance plus a provisional, self-expiring record),
// the event-triggered resize pipeline (concurrent multi-variant derivation
// with all-or-nothing finalization), and the two-phase deletion flow
// (batched record removal with bounded retry, then reactive cleanup of
// storage objects from change-feed pre-images). Record stores (memory,
// DynamoDB) and blob stores (memory, S3) are provided under subpackages.
//
// Each operation is an independent, stateless unit of work: the service
// holds no mutable state between invocations, and concurrency exists only
// inside a single resize or cleanup run.
package photoflow
