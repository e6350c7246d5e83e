//go:build linux

package proc

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

func systemTable() Table {
	return procfsTable{}
}

// procfsTable reads the process tree from /proc. Every read races with
// process exit; failed reads are treated as "process gone".
type procfsTable struct{}

func (procfsTable) Children(pid int) []Process {
	// /proc/<pid>/task/<pid>/children lists direct child PIDs space-separated.
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/task/%d/children", pid, pid))
	if err != nil {
		return nil
	}
	var children []Process
	for _, field := range strings.Fields(string(data)) {
		childPID, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		if p, ok := readProc(childPID); ok {
			children = append(children, p)
		}
	}
	return children
}

func (procfsTable) Lookup(pid int) (Process, bool) {
	return readProc(pid)
}

func (procfsTable) Alive(pid int) bool {
	if err := syscall.Kill(pid, 0); err != nil {
		return false
	}
	// Zombies answer signal 0 but are no longer running.
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return false
	}
	// State is the field after the parenthesized comm.
	s := string(data)
	if i := strings.LastIndexByte(s, ')'); i >= 0 && i+2 < len(s) {
		return s[i+2] != 'Z'
	}
	return true
}

func readProc(pid int) (Process, bool) {
	comm, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return Process{}, false
	}
	p := Process{
		PID:  pid,
		Name: strings.TrimSpace(string(comm)),
	}
	// cmdline is NUL-delimited argv.
	if data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "cmdline")); err == nil {
		p.Cmdline = strings.TrimRight(strings.ReplaceAll(string(data), "\x00", " "), " ")
	}
	return p, true
}
