package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// newTestServer spins up the full router, middleware chain included
func newTestServer(t *testing.T) (*OpensquareNode, *httptest.Server) {
	t.Helper()
	ResetCallerAuthConfigForTesting()
	t.Cleanup(ResetCallerAuthConfigForTesting)

	node := newTestNode()
	server := httptest.NewServer(node.Router())
	t.Cleanup(server.Close)
	return node, server
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	_, server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body["status"])
	}
}

func TestBountyLifecycleOverHTTP(t *testing.T) {
	node, server := newTestServer(t)
	fund(node, "funder-1", CurrencyNative, 5000)

	// Create
	resp := postJSON(t, server.URL+"/api/bounties", map[string]interface{}{
		"creator":  "funder-1",
		"currency": "NATIVE",
		"payment":  1000,
		"category": "DEVELOPMENT",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201 on create, got %d", resp.StatusCode)
	}
	bountyID, _ := decodeBody(t, resp)["bountyId"].(string)
	if bountyID == "" {
		t.Fatal("Expected a bounty id in the create response")
	}
	base := server.URL + "/api/bounties/" + bountyID

	// Examine
	resp = postJSON(t, base+"/examine", map[string]interface{}{
		"caller": "council-1", "accepted": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 on examine, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Hunt and assign
	resp = postJSON(t, base+"/hunt", map[string]interface{}{"caller": "hunter-1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 on hunt, got %d", resp.StatusCode)
	}
	resp.Body.Close()
	resp = postJSON(t, base+"/assign", map[string]interface{}{
		"caller": "funder-1", "hunter": "hunter-1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 on assign, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Submit and resolve
	resp = postJSON(t, base+"/submit", map[string]interface{}{"caller": "hunter-1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 on submit, got %d", resp.StatusCode)
	}
	resp.Body.Close()
	resp = postJSON(t, base+"/resolve", map[string]interface{}{
		"caller": "funder-1", "remark": "GOOD",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 on resolve, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Query the final record
	resp, err := http.Get(base)
	if err != nil {
		t.Fatalf("GET bounty failed: %v", err)
	}
	body := decodeBody(t, resp)
	if body["state"] != "RESOLVED" {
		t.Errorf("Expected state RESOLVED, got %v", body["state"])
	}

	// And the payout
	resp, err = http.Get(server.URL + "/api/escrow/hunter-1")
	if err != nil {
		t.Fatalf("GET escrow failed: %v", err)
	}
	balances := decodeBody(t, resp)["balances"].(map[string]interface{})
	native := balances["NATIVE"].(map[string]interface{})
	if native["free"].(float64) != 950 {
		t.Errorf("Expected hunter-1 free 950, got %v", native["free"])
	}
}

func TestCreateBountyValidationOverHTTP(t *testing.T) {
	node, server := newTestServer(t)
	fund(node, "funder-1", CurrencyNative, 5000)

	tests := []struct {
		name string
		body map[string]interface{}
		want int
	}{
		{"bad creator", map[string]interface{}{
			"creator": "no spaces allowed", "currency": "NATIVE", "payment": 100, "category": "DESIGN",
		}, http.StatusBadRequest},
		{"bad currency", map[string]interface{}{
			"creator": "funder-1", "currency": "DOGE", "payment": 100, "category": "DESIGN",
		}, http.StatusBadRequest},
		{"zero payment", map[string]interface{}{
			"creator": "funder-1", "currency": "NATIVE", "payment": 0, "category": "DESIGN",
		}, http.StatusBadRequest},
		{"script content", map[string]interface{}{
			"creator": "funder-1", "currency": "NATIVE", "payment": 100, "category": "DESIGN",
			"content": "<script>alert(1)</script>",
		}, http.StatusBadRequest},
		{"cant pay", map[string]interface{}{
			"creator": "funder-1", "currency": "NATIVE", "payment": 999999, "category": "DESIGN",
		}, http.StatusPaymentRequired},
	}

	for _, tt := range tests {
		resp := postJSON(t, server.URL+"/api/bounties", tt.body)
		if resp.StatusCode != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.want, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestCreateBountyInlineContentDigest(t *testing.T) {
	node, server := newTestServer(t)
	fund(node, "funder-1", CurrencyNative, 5000)

	content := "translate the docs"
	resp := postJSON(t, server.URL+"/api/bounties", map[string]interface{}{
		"creator": "funder-1", "currency": "NATIVE", "payment": 100,
		"category": "DOCUMENT", "content": content,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	bountyID := decodeBody(t, resp)["bountyId"].(string)

	bounty, _, _ := node.GetBounty(BountyId(bountyID))
	if bounty.Digest != CalculateContentDigest([]byte(content)) {
		t.Errorf("Expected digest of inline content, got %s", bounty.Digest)
	}
}

func TestActionErrorStatusMapping(t *testing.T) {
	node, server := newTestServer(t)
	fund(node, "funder-1", CurrencyNative, 5000)

	// 404 for an unknown bounty
	resp := postJSON(t, server.URL+"/api/bounties/ffff/hunt", map[string]interface{}{"caller": "hunter-1"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown bounty, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	bountyID := mustCreate(t, node, "funder-1", 1000)
	base := fmt.Sprintf("%s/api/bounties/%s", server.URL, bountyID)

	// 409 for a state violation (hunting an Applying bounty)
	resp = postJSON(t, base+"/hunt", map[string]interface{}{"caller": "hunter-1"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 for state violation, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// 403 for a permission failure (non-council examine)
	resp = postJSON(t, base+"/examine", map[string]interface{}{"caller": "funder-1", "accepted": true})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403 for non-council examine, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestClaimRewardOverHTTP(t *testing.T) {
	node, server := newTestServer(t)
	fund(node, "treasury", CurrencyNative, 10000)
	grant(node, "alice", 10)
	setHeight(node, 99)
	node.AdvanceHeight()

	resp := postJSON(t, server.URL+"/api/mining/claim", map[string]interface{}{
		"caller": "alice", "session": 0,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 on claim, got %d", resp.StatusCode)
	}
	if got := decodeBody(t, resp)["reward"].(float64); got != 100 {
		t.Errorf("Expected reward 100, got %v", got)
	}

	// The session query shows the claim took the power entry
	resp, err := http.Get(server.URL + "/api/mining/sessions/0")
	if err != nil {
		t.Fatalf("GET session failed: %v", err)
	}
	body := decodeBody(t, resp)
	power := body["power"].(map[string]interface{})
	if _, ok := power["alice"]; ok {
		t.Error("Expected alice's power entry removed after claim")
	}
}

func TestAdminEndpoints(t *testing.T) {
	_, server := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/admin/blocked", map[string]interface{}{
		"caller": "council-1", "account": "mallory", "blocked": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 blocking account, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err := http.Get(server.URL + "/api/admin/blocked")
	if err != nil {
		t.Fatalf("GET blocked failed: %v", err)
	}
	blocked := decodeBody(t, resp)["blocked"].([]interface{})
	if len(blocked) != 1 || blocked[0] != "mallory" {
		t.Errorf("Expected blocked list [mallory], got %v", blocked)
	}

	resp = postJSON(t, server.URL+"/api/admin/height", map[string]interface{}{
		"caller": "council-1", "blocks": 7,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 advancing height, got %d", resp.StatusCode)
	}
	if got := decodeBody(t, resp)["height"].(float64); got != 7 {
		t.Errorf("Expected height 7, got %v", got)
	}
}

func TestRequestIDHeader(t *testing.T) {
	_, server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health failed: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header")
	}
}

func TestBodySizeLimit(t *testing.T) {
	ResetCallerAuthConfigForTesting()
	t.Cleanup(ResetCallerAuthConfigForTesting)

	node := newTestNode()
	node.cfg.MaxBodySizeBytes = 64
	server := httptest.NewServer(node.Router())
	defer server.Close()

	oversize := map[string]interface{}{
		"creator": "funder-1", "currency": "NATIVE", "payment": 100,
		"category": "DESIGN", "content": strings.Repeat("x", 500),
	}
	resp := postJSON(t, server.URL+"/api/bounties", oversize)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413 for oversize body, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCallerAuthEnforcedWhenRequired(t *testing.T) {
	ResetCallerAuthConfigForTesting()
	t.Setenv("CALLER_AUTH_SECRET", "test-secret")
	t.Setenv("REQUIRE_CALLER_AUTH", "true")
	t.Cleanup(ResetCallerAuthConfigForTesting)

	node := newTestNode()
	fund(node, "funder-1", CurrencyNative, 5000)
	server := httptest.NewServer(node.Router())
	defer server.Close()

	body, _ := json.Marshal(map[string]interface{}{
		"creator": "funder-1", "currency": "NATIVE", "payment": 100, "category": "DESIGN",
	})

	// Unsigned request is rejected
	resp, err := http.Post(server.URL+"/api/bounties", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 for unsigned request, got %d", resp.StatusCode)
	}

	// Properly signed request goes through
	timestamp := time.Now().Unix()
	sig := SignRequest("funder-1", "POST", "/api/bounties", body, "test-secret", timestamp)

	req, err := http.NewRequest("POST", server.URL+"/api/bounties", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(CallerAccountHeader, "funder-1")
	req.Header.Set(CallerTimestampHeader, fmt.Sprintf("%d", timestamp))
	req.Header.Set(CallerSignatureHeader, sig)

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Signed POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("Expected 201 for signed request, got %d", resp.StatusCode)
	}
}

// findMetricFamily gathers the default registry and returns one family
func findMetricFamily(t *testing.T, name string) *dto.MetricFamily {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}
	return nil
}

func TestBountyActionMetrics(t *testing.T) {
	node, server := newTestServer(t)
	fund(node, "funder-1", CurrencyNative, 5000)

	resp := postJSON(t, server.URL+"/api/bounties", map[string]interface{}{
		"creator": "funder-1", "currency": "NATIVE", "payment": 100, "category": "DESIGN",
	})
	resp.Body.Close()

	family := findMetricFamily(t, "opensquare_bounty_actions_total")
	if family == nil {
		t.Fatal("Expected opensquare_bounty_actions_total to be registered")
	}

	var found bool
	for _, metric := range family.GetMetric() {
		labels := map[string]string{}
		for _, pair := range metric.GetLabel() {
			labels[pair.GetName()] = pair.GetValue()
		}
		if labels["action"] == "create_bounty" && labels["status"] == "accepted" {
			if metric.GetCounter().GetValue() < 1 {
				t.Error("Expected accepted create_bounty counter >= 1")
			}
			found = true
		}
	}
	if !found {
		t.Error("Expected an accepted create_bounty sample")
	}
}

func TestHTTPRequestMetrics(t *testing.T) {
	_, server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health failed: %v", err)
	}
	resp.Body.Close()

	family := findMetricFamily(t, "opensquare_http_requests_total")
	if family == nil {
		t.Fatal("Expected opensquare_http_requests_total to be registered")
	}
	var total float64
	for _, metric := range family.GetMetric() {
		total += metric.GetCounter().GetValue()
	}
	if total < 1 {
		t.Error("Expected at least one HTTP request counted")
	}
}

func TestMetricsEndpointServes(t *testing.T) {
	_, server := newTestServer(t)

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from /metrics, got %d", resp.StatusCode)
	}
}
