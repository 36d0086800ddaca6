package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"os"
	"sync"
	"time"
)

// Caller authentication. The consensus substrate that would normally verify
// transaction signatures is out of scope; this node enforces an HMAC envelope
// instead: when auth is required, every action request must carry a signature
// tying the caller account to the request body.

// Caller authentication header names
const (
	CallerSignatureHeader = "X-Caller-Signature"
	CallerTimestampHeader = "X-Caller-Timestamp"
	CallerAccountHeader   = "X-Caller-Account"
)

// CallerAuthTimestampTolerance is the maximum age of a signed request
const CallerAuthTimestampTolerance = 5 * time.Minute

// Package-level auth configuration loaded once from environment
var (
	callerAuthConfig struct {
		secret   string
		required bool
	}
	callerAuthConfigOnce sync.Once
)

// loadCallerAuthConfig loads auth configuration from environment variables
func loadCallerAuthConfig() {
	callerAuthConfigOnce.Do(func() {
		callerAuthConfig.secret = os.Getenv("CALLER_AUTH_SECRET")
		callerAuthConfig.required = os.Getenv("REQUIRE_CALLER_AUTH") == "true"
	})
}

// GetCallerAuthSecret returns the caller authentication secret
func GetCallerAuthSecret() string {
	loadCallerAuthConfig()
	return callerAuthConfig.secret
}

// IsCallerAuthRequired returns whether caller authentication is required
func IsCallerAuthRequired() bool {
	loadCallerAuthConfig()
	return callerAuthConfig.required
}

// SignRequest creates an HMAC-SHA256 signature for an action request.
// The signature covers: account + method + path + body + timestamp
func SignRequest(account, method, path string, body []byte, secret string, timestamp int64) string {
	message := fmt.Sprintf("%s\n%s\n%s\n%s\n%d", account, method, path, string(body), timestamp)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyRequest verifies the HMAC-SHA256 signature of an action request.
// Returns false if the timestamp is stale or the signature doesn't match.
func VerifyRequest(account, method, path string, body []byte, secret string, timestamp int64, signature string) bool {
	// Verify timestamp is within acceptable window
	now := time.Now().Unix()
	toleranceSec := int64(CallerAuthTimestampTolerance.Seconds())
	if timestamp < now-toleranceSec || timestamp > now+toleranceSec {
		return false
	}

	// Compute expected signature
	expectedSig := SignRequest(account, method, path, body, secret, timestamp)

	// Use constant-time comparison to prevent timing attacks
	return subtle.ConstantTimeCompare([]byte(signature), []byte(expectedSig)) == 1
}

// ResetCallerAuthConfigForTesting resets the auth config for testing purposes.
// This should only be used in tests.
func ResetCallerAuthConfigForTesting() {
	callerAuthConfigOnce = sync.Once{}
	callerAuthConfig.secret = ""
	callerAuthConfig.required = false
}
