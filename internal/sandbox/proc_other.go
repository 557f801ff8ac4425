//go:build !unix

package sandbox

import (
	"os"
	"os/exec"
)

func setProcessGroup(cmd *exec.Cmd) {}

func signalOf(state *os.ProcessState) (string, bool) {
	return "", false
}
