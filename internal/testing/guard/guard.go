// Package guard marks the process as a test run so binaries refuse to
// serve real traffic under go test. Blank-import it from test packages.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("BRIGHTWAVE_TEST_MODE") == "" {
			_ = os.Setenv("BRIGHTWAVE_TEST_MODE", "1")
		}
	})
}
