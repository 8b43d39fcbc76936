package cache

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/kiranshivaraju/cropwise/pkg/models"
	"golang.org/x/crypto/blake2b"
)

// PredictionKey addresses a cached inference result. The model fingerprint
// scopes entries so a redeployed artifact never serves stale labels.
func PredictionKey(modelFingerprint string, vec models.FeatureVector) string {
	var buf [models.NumFeatures * 8]byte
	for i, v := range vec {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	sum := blake2b.Sum256(buf[:])
	return fmt.Sprintf("predict:%s:%s", shortFingerprint(modelFingerprint), hex.EncodeToString(sum[:16]))
}

func RateLimitKey(client string) string {
	return fmt.Sprintf("ratelimit:%s", client)
}

func shortFingerprint(fp string) string {
	if fp == "" {
		return "unversioned"
	}
	if len(fp) > 16 {
		return fp[:16]
	}
	return fp
}
