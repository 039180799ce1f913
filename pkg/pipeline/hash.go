package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// messageHash computes the deduplication key for a message: the first 16
// hex characters of SHA-256("channel_id:ts:text").
func messageHash(channelID, ts, text string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s", channelID, ts, text)))
	return hex.EncodeToString(sum[:])[:16]
}
