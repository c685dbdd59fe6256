// Package idhash derives deterministic identifiers for artifacts and cached forecasts.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ComputeArtifactFingerprint identifies a resolved artifact.
// Formula: SHA256(tier|columns joined by ","|payload)
// payload is the raw bundle for loaded tiers or a description of the synthesized
// predictor and its history for the fallback tier.
// Returns the first 16 hex characters.
func ComputeArtifactFingerprint(tier string, columns []string, payload []byte) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|", tier, strings.Join(columns, ","))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// ComputeForecastKey computes the cache key of one forecast.
// Formula: SHA256(fingerprint|product_id|horizon)
// Returns hex-encoded hash (64 characters).
func ComputeForecastKey(fingerprint, productID string, horizon int) string {
	data := fmt.Sprintf("%s|%s|%d", fingerprint, productID, horizon)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
