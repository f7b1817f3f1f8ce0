//go:build blackbox

package blackbox

import (
	"fmt"
	"strings"
)

func contains(s, sub string) bool { return strings.Contains(s, sub) }

// simConfig is a sim broker writing CSV files to dir, with calendar hours.
func simConfig(account, dir string) string {
	return fmt.Sprintf(`
account:
  id: %s
broker:
  type: sim
sheet:
  type: csv
  path: %s
poll:
  interval: 100ms
  hours_source: calendar
log:
  level: warn
`, account, dir)
}
