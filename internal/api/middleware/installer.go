package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/credo-sh/credo/internal/api/response"
	"github.com/credo-sh/credo/internal/metrics"
)

// InstallerKeyHeader carries the privileged shared secret authorizing
// lifecycle mutations across all tenants. It is distinct from per-tenant
// API keys and compared against a single configured value.
const InstallerKeyHeader = "X-Installer-Key"

// Installer gates lifecycle-mutation endpoints on the installer key.
type Installer struct {
	expected  string
	devBypass bool
	metrics   *metrics.Metrics
}

// NewInstaller creates the installer gate. The bypass is deployment-time
// configuration only; no header can simulate it.
func NewInstaller(expected string, devBypass bool, m *metrics.Metrics) *Installer {
	return &Installer{expected: expected, devBypass: devBypass, metrics: m}
}

// Require rejects the request unless the installer key matches. The check
// runs before any per-tenant logic.
func (i *Installer) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if i.devBypass {
			next.ServeHTTP(w, r)
			return
		}

		presented := r.Header.Get(InstallerKeyHeader)
		if presented == "" || i.expected == "" ||
			subtle.ConstantTimeCompare([]byte(presented), []byte(i.expected)) != 1 {
			i.metrics.AuthFailuresTotal.WithLabelValues("installer").Inc()
			response.Error(w, http.StatusUnauthorized, "INVALID_INSTALLER_KEY",
				"Invalid or missing installer key", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
