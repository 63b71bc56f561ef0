package routinggates

import (
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	_ = os.Setenv("GO_APP_ENV", "production")
	_ = os.Setenv("PROMETHEUS_METRICS_ENABLED", "false")
	_ = os.Setenv("RATE_LIMIT_ENABLED", "false")

	os.Exit(m.Run())
}
