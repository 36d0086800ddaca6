package main

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// DeriveBountyID deterministically derives a bounty id from the funder
// account and the funder's nonce at creation time. The nonce is encoded
// little-endian and appended to the raw account bytes before hashing, so
// equal (account, nonce) pairs always collide and everything else never
// does in practice.
func DeriveBountyID(account string, nonce uint64) BountyId {
	var nonceBytes [8]byte
	binary.LittleEndian.PutUint64(nonceBytes[:], nonce)

	h := sha256.New()
	h.Write([]byte(account))
	h.Write(nonceBytes[:])
	return BountyId(hex.EncodeToString(h.Sum(nil)))
}

// CalculateContentDigest hashes off-chain bounty content so the on-ledger
// record only carries a fixed-size digest.
func CalculateContentDigest(content []byte) string {
	digest := sha256.Sum256(content)
	return hex.EncodeToString(digest[:])
}

// nextNonce returns the funder's current nonce and advances it. Caller must
// hold the state mutex.
func (node *OpensquareNode) nextNonce(account string) uint64 {
	nonce := node.AccountNonces[account]
	node.AccountNonces[account] = nonce + 1
	return nonce
}
