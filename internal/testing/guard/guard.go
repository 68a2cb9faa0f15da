// Package guard flips the portal into test mode when imported, so binaries and
// app wiring skip network side effects under `go test`.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("MEDPORTAL_TEST_MODE") == "" {
			_ = os.Setenv("MEDPORTAL_TEST_MODE", "1")
		}
	})
}
