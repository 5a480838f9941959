package test

import (
	"os"
	"strings"
)

// UnsetEnvPrefix removes every environment variable starting with prefix.
func UnsetEnvPrefix(prefix string) {
	for _, v := range os.Environ() {
		if strings.HasPrefix(v, prefix) {
			os.Unsetenv(strings.SplitN(v, "=", 2)[0])
		}
	}
}
