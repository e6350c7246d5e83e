//go:build !linux

package proc

import (
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

func systemTable() Table {
	return pgrepTable{}
}

// pgrepTable shells out to pgrep/ps on platforms without procfs (macOS).
// Command failures mean the process vanished, never a hard error.
type pgrepTable struct{}

func (pgrepTable) Children(pid int) []Process {
	out, err := exec.Command("pgrep", "-P", strconv.Itoa(pid)).Output()
	if err != nil {
		return nil
	}
	var children []Process
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		childPID, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || childPID <= 0 {
			continue
		}
		if p, ok := psLookup(childPID); ok {
			children = append(children, p)
		}
	}
	return children
}

func (pgrepTable) Lookup(pid int) (Process, bool) {
	return psLookup(pid)
}

func (pgrepTable) Alive(pid int) bool {
	if err := syscall.Kill(pid, 0); err != nil {
		return false
	}
	out, err := exec.Command("ps", "-p", strconv.Itoa(pid), "-o", "state=").Output()
	if err != nil {
		return false
	}
	return !strings.HasPrefix(strings.TrimSpace(string(out)), "Z")
}

func psLookup(pid int) (Process, bool) {
	out, err := exec.Command("ps", "-p", strconv.Itoa(pid), "-o", "comm=").Output()
	if err != nil {
		return Process{}, false
	}
	p := Process{
		PID:  pid,
		Name: strings.TrimSpace(string(out)),
	}
	if args, err := exec.Command("ps", "-p", strconv.Itoa(pid), "-o", "args=").Output(); err == nil {
		p.Cmdline = strings.TrimSpace(string(args))
	}
	return p, true
}
