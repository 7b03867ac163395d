// Package remote implements the remote cache tier: a client for the tagged
// asset store holding one compressed payload per dataset id plus an
// index.json listing. Transfers are wrapped in retry/backoff, downloads are
// verified (non-empty, expected size, valid gzip) before use, and
// UpdateFromRemote promotes a downloaded payload into the local tier.
package remote
