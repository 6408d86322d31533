package terminal

import (
	"path/filepath"
	"strings"
)

// ShellInvocation is a fully-built program+args pair ready to exec.
type ShellInvocation struct {
	Program string
	Args    []string
}

type shellKind int

const (
	shellBashLike shellKind = iota
	shellFish
	shellNu
	shellTcsh
	shellPowerShell
	shellUnknown
)

func classifyShell(shell string) shellKind {
	name := strings.ToLower(filepath.Base(shell))
	switch name {
	case "bash", "zsh", "ksh", "sh", "dash", "ash":
		return shellBashLike
	case "fish":
		return shellFish
	case "nu", "nushell":
		return shellNu
	case "tcsh", "csh":
		return shellTcsh
	case "pwsh", "powershell":
		return shellPowerShell
	default:
		return shellUnknown
	}
}

func loginFlags(kind shellKind) []string {
	switch kind {
	case shellNu:
		return []string{"--login"}
	case shellPowerShell:
		return []string{"-Login"}
	default:
		return []string{"-l"}
	}
}

func commandFlag(kind shellKind) string {
	if kind == shellPowerShell {
		return "-Command"
	}
	return "-c"
}

// BuildLoginShellInvocation resolves the effective shell and builds a
// login-invocation that runs command.
func BuildLoginShellInvocation(command string) ShellInvocation {
	shell, baseArgs := GetEffectiveShell()
	return BuildLoginShellInvocationWithShell(shell, baseArgs, command)
}

// BuildLoginShellInvocationWithShell builds a login-invocation for an
// explicit shell and its pre-existing base arguments. Previously-supplied
// command flags (and, for "-c", any value clustered into a combined short
// flag like "-lc") are stripped along with the argument that followed them,
// then the login flag and command flag for this shell kind are appended
// (without duplicating an equivalent flag already present), followed by the
// new command.
func BuildLoginShellInvocationWithShell(shell string, baseArgs []string, command string) ShellInvocation {
	kind := classifyShell(shell)
	flag := commandFlag(kind)
	args := sanitizeBaseArgs(baseArgs, flag)

	for _, lf := range loginFlags(kind) {
		ensureFlag(&args, lf)
	}
	ensureFlag(&args, flag)

	args = append(args, command)

	return ShellInvocation{Program: shell, Args: args}
}

// sanitizeBaseArgs removes any existing command-flag occurrence (and its
// following value) from baseArgs, including one folded into a combined
// short-flag cluster such as "-lc".
func sanitizeBaseArgs(baseArgs []string, flag string) []string {
	sanitized := make([]string, 0, len(baseArgs))
	i := 0
	for i < len(baseArgs) {
		arg := baseArgs[i]

		if flag == "-c" {
			if arg == flag {
				i += 2
				continue
			}
			if strings.HasPrefix(arg, "-") && !strings.HasPrefix(arg, "--") {
				cluster := []rune(arg[1:])
				hasC := false
				rebuilt := make([]rune, 0, len(cluster))
				for _, ch := range cluster {
					if ch == 'c' {
						hasC = true
						continue
					}
					rebuilt = append(rebuilt, ch)
				}
				if hasC {
					if len(rebuilt) > 0 {
						sanitized = append(sanitized, "-"+string(rebuilt))
					}
					i += 2
					continue
				}
			}
		} else if arg == flag {
			i += 2
			continue
		}

		sanitized = append(sanitized, arg)
		i++
	}
	return sanitized
}

func ensureFlag(args *[]string, flag string) {
	if strings.HasPrefix(flag, "--") || len(flag) > 2 {
		for _, existing := range *args {
			if existing == flag {
				return
			}
		}
	} else if strings.HasPrefix(flag, "-") && len(flag) == 2 {
		short := rune(flag[1])
		for _, existing := range *args {
			if shortFlagContains(existing, short) {
				return
			}
		}
	} else {
		for _, existing := range *args {
			if existing == flag {
				return
			}
		}
	}
	*args = append(*args, flag)
}

func shortFlagContains(candidate string, flag rune) bool {
	if !strings.HasPrefix(candidate, "-") || strings.HasPrefix(candidate, "--") {
		return false
	}
	rest := candidate[1:]
	if rest == "" {
		return false
	}
	if len(rest) == 1 {
		return rune(rest[0]) == flag
	}
	for _, ch := range rest {
		if !isASCIIAlpha(ch) {
			return false
		}
	}
	return strings.ContainsRune(rest, flag)
}

func isASCIIAlpha(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// ShellInvocationToPosix renders invocation as a single POSIX-shell-quoted
// command line, e.g. for display or for nesting inside another shell -c.
func ShellInvocationToPosix(invocation ShellInvocation) string {
	parts := make([]string, 0, len(invocation.Args)+1)
	parts = append(parts, shQuoteString(invocation.Program))
	for _, arg := range invocation.Args {
		parts = append(parts, shQuoteString(arg))
	}
	return strings.Join(parts, " ")
}

func shQuoteString(s string) string {
	if s == "" {
		return "''"
	}
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, ch := range s {
		if ch == '\'' {
			b.WriteString(`'\''`)
		} else {
			b.WriteRune(ch)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
