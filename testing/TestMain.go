// Package testing switches the storefront binaries into test mode. Tests that may reach
// a main function blank-import it so no listener, worker or PDF renderer starts.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("STOREFRONT_TEST_MODE", "1")
		_ = os.Setenv("GOTENBERG_URL", "")
		if os.Getenv("STORE_BACKEND") == "" {
			_ = os.Setenv("STORE_BACKEND", "memory")
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain can be assigned from a package's own TestMain to force test mode first.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
