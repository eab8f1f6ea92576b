package ledger

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestMain(m *testing.M) {
	// Corruption and rollback tests trip deliberately loud diagnostics.
	// Suppress them unless DEBUG_TESTS=1 is set.
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.PanicLevel)
	}
	os.Exit(m.Run())
}
