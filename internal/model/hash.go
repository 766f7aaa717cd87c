package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// DomainIdempotency prefixes idempotency-key hashes. The version suffix allows
// changing the algorithm later.
const DomainIdempotency = "finance/idempotency/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// IdempotencyKey derives the content-addressed key sent with a replayed
// mutation. The same entry replayed twice yields the same key, so the server
// can drop the second create.
func IdempotencyKey(kind Kind, id int64, action Action, snapshot []byte) string {
	data := make([]byte, 0, len(snapshot)+48)
	data = append(data, kind...)
	data = append(data, 0x00)
	data = strconv.AppendInt(data, id, 10)
	data = append(data, 0x00)
	data = append(data, action...)
	data = append(data, 0x00)
	data = append(data, snapshot...)
	return hashWithDomain(DomainIdempotency, data)
}
