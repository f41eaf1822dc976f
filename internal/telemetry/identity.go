package telemetry

import (
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var machineIDPaths = []string{"/etc/machine-id", "/var/lib/dbus/machine-id"}

var (
	anonymousID     string
	anonymousIDOnce sync.Once
)

// AnonymousUserID is a stable per-installation id that never exposes the
// hostname or machine id it is derived from.
func AnonymousUserID() string {
	anonymousIDOnce.Do(func() {
		host, _ := os.Hostname()
		anonymousID = anonymize(host, readMachineID())
	})
	return anonymousID
}

func anonymize(host, machineID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(host+"\x00"+machineID)).String()
}

func readMachineID() string {
	for _, p := range machineIDPaths {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if id := strings.TrimSpace(string(b)); id != "" {
			return id
		}
	}
	return ""
}
