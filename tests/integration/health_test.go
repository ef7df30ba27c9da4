package integration

import (
	"net/http"
	"testing"
	"time"
)

// TestServiceHealthy checks the liveness and readiness endpoints. If the
// service is unreachable the tests skip, so the suite can run in environments
// where the Docker stack is not up.
func TestServiceHealthy(t *testing.T) {
	client := &http.Client{Timeout: 3 * time.Second}

	t.Run("live", func(t *testing.T) {
		resp, err := client.Get(baseURL() + "/health/live")
		if err != nil {
			t.Skipf("ticketpay service not reachable: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("liveness returned status %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})

	t.Run("ready", func(t *testing.T) {
		resp, err := client.Get(baseURL() + "/health/ready")
		if err != nil {
			t.Skipf("ticketpay service not reachable: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("readiness returned status %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})
}
