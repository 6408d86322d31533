// Package cleanup implements Process Cleanup (spec §4.J): enumerating and
// terminating external processes whose current working directory equals a
// session worktree, so the worktree can be removed safely. Unix-only, per
// spec; on other platforms TerminateProcessesWithCwd is a no-op.
package cleanup

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/schaltwerk/schaltwerk/internal/agentspec"
	"github.com/schaltwerk/schaltwerk/internal/logging"
)

// sigtermGrace is how long to wait for a SIGTERM'd process to exit before
// escalating to SIGKILL, per spec §4.J.
const sigtermGrace = 1500 * time.Millisecond

// sigkillGrace is how long to wait for a SIGKILL'd process to exit before
// giving up and reporting it as a survivor.
const sigkillGrace = 1000 * time.Millisecond

const pollSlice = 100 * time.Millisecond

// allowlist returns the known-agent binary basenames process cleanup is
// permitted to terminate, taken from the Agent Registry's manifest so the
// two lists never drift apart (spec SPEC_FULL.md EXPANDED MODULE DETAIL).
func allowlist() map[string]bool {
	out := make(map[string]bool)
	for _, def := range agentspec.All() {
		if def.BinaryName != "" {
			out[def.BinaryName] = true
		}
	}
	return out
}

// TerminateProcessesWithCwd finds every process whose working directory
// resolves to worktreePath and whose binary basename is on the known-agent
// allow-list, sends SIGTERM, waits up to sigtermGrace, escalates surviving
// processes to SIGKILL, and waits up to sigkillGrace more. Returns the pids
// that were targeted (whether or not they were confirmed dead) and never
// returns an error for "no matching processes" or "cleanup tool missing" —
// those degrade to an empty result, per spec §4.J.
func TerminateProcessesWithCwd(ctx context.Context, worktreePath string) []int {
	if runtime.GOOS == "windows" {
		return nil
	}

	canonical, err := filepath.EvalSymlinks(worktreePath)
	if err != nil {
		canonical = worktreePath
	}

	pids := findPidsWithCwd(ctx, canonical)
	if len(pids) == 0 {
		return nil
	}

	pids = filterKnownProcesses(ctx, pids)
	if len(pids) == 0 {
		return nil
	}

	var terminated []int
	for _, pid := range pids {
		if terminatePid(ctx, pid) {
			terminated = append(terminated, pid)
		}
	}
	return terminated
}

// findPidsWithCwd locates candidate pids via lsof, falling back to /proc on
// Linux if lsof is unavailable or errors. The current process is always
// excluded.
func findPidsWithCwd(ctx context.Context, canonical string) []int {
	self := os.Getpid()

	out, err := exec.CommandContext(ctx, "lsof", "-nP", "-t", "-a", "-d", "cwd", "--", canonical).Output()
	if err != nil {
		if runtime.GOOS == "linux" {
			logging.Debug(ctx, "lsof unavailable, falling back to /proc", "path", canonical, "err", err)
			return findPidsWithCwdProcfs(canonical, self)
		}
		logging.Warn(ctx, "lsof failed, proceeding without external-process cleanup", "path", canonical, "err", err)
		return nil
	}

	seen := make(map[int]bool)
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil || pid == self {
			continue
		}
		seen[pid] = true
	}

	pids := make([]int, 0, len(seen))
	for pid := range seen {
		pids = append(pids, pid)
	}
	return pids
}

// findPidsWithCwdProcfs is the Linux-only fallback that walks /proc/<pid>/cwd
// symlinks directly when lsof is unavailable.
func findPidsWithCwdProcfs(canonical string, self int) []int {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil
	}

	var pids []int
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid == self {
			continue
		}
		target, err := os.Readlink(filepath.Join("/proc", entry.Name(), "cwd"))
		if err != nil {
			continue
		}
		if target == canonical {
			pids = append(pids, pid)
		}
	}
	return pids
}

// filterKnownProcesses restricts pids to those whose command name matches
// the agent allow-list, via `ps -o pid=,comm=`. If ps can't be consulted
// (missing binary, all pids already exited), the original set is returned
// unfiltered rather than silently skipping cleanup.
func filterKnownProcesses(ctx context.Context, pids []int) []int {
	allowed := allowlist()

	args := make([]string, 0, len(pids)+3)
	args = append(args, "-o", "pid=,comm=", "-p")
	joined := make([]string, len(pids))
	for i, pid := range pids {
		joined[i] = strconv.Itoa(pid)
	}
	args = append(args, strings.Join(joined, ","))

	out, err := exec.CommandContext(ctx, "ps", args...).Output()
	if err != nil {
		return pids
	}

	matched := make([]int, 0, len(pids))
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		if len(fields) != 2 {
			continue
		}
		pid, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(filepath.Base(fields[1])))
		if allowed[name] {
			matched = append(matched, pid)
		}
	}

	if len(matched) == 0 {
		return pids
	}
	return matched
}

// terminatePid sends SIGTERM, waits up to sigtermGrace, escalates to
// SIGKILL on survivors, and waits up to sigkillGrace more.
func terminatePid(ctx context.Context, pid int) bool {
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		if err == syscall.ESRCH {
			return false
		}
		logging.Warn(ctx, "failed to SIGTERM process during cleanup", "pid", pid, "err", err)
	}

	if waitForExit(pid, sigtermGrace) {
		return true
	}

	logging.Debug(ctx, "process survived SIGTERM, escalating to SIGKILL", "pid", pid)
	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
		if err == syscall.ESRCH {
			return true
		}
		logging.Warn(ctx, "failed to SIGKILL process during cleanup", "pid", pid, "err", err)
	}

	if waitForExit(pid, sigkillGrace) {
		return true
	}

	logging.Warn(ctx, "process still alive after SIGTERM and SIGKILL", "pid", pid)
	return false
}

// waitForExit polls processAlive in pollSlice increments until timeout.
func waitForExit(pid int, timeout time.Duration) bool {
	waited := time.Duration(0)
	for waited < timeout {
		if !processAlive(pid) {
			return true
		}
		time.Sleep(pollSlice)
		waited += pollSlice
	}
	return !processAlive(pid)
}

// processAlive reports whether pid still exists, per the kill(pid, 0)
// convention: ESRCH means gone, EPERM means alive but unowned by us.
func processAlive(pid int) bool {
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return err == syscall.EPERM
}
