package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildLoginShellInvocation_BashLikeShells(t *testing.T) {
	inv := BuildLoginShellInvocationWithShell("/bin/zsh", nil, "sh '/tmp/setup.sh'")
	assert.Equal(t, "/bin/zsh", inv.Program)
	assert.Equal(t, []string{"-l", "-c", "sh '/tmp/setup.sh'"}, inv.Args)
}

func TestBuildLoginShellInvocation_PreservesExistingArgsAppendsNeeded(t *testing.T) {
	inv := BuildLoginShellInvocationWithShell("/bin/bash", []string{"-i"}, "sh '/tmp/setup.sh'")
	assert.Equal(t, "/bin/bash", inv.Program)
	assert.Equal(t, []string{"-i", "-l", "-c", "sh '/tmp/setup.sh'"}, inv.Args)
}

func TestBuildLoginShellInvocation_FishUsesDashLFlag(t *testing.T) {
	inv := BuildLoginShellInvocationWithShell("/usr/local/bin/fish", nil, "sh '/tmp/setup.sh'")
	assert.Equal(t, "/usr/local/bin/fish", inv.Program)
	assert.Equal(t, []string{"-l", "-c", "sh '/tmp/setup.sh'"}, inv.Args)
}

func TestBuildLoginShellInvocation_NuUsesLoginFlag(t *testing.T) {
	inv := BuildLoginShellInvocationWithShell("/usr/local/bin/nu", nil, "sh '/tmp/setup.sh'")
	assert.Equal(t, "/usr/local/bin/nu", inv.Program)
	assert.Equal(t, []string{"--login", "-c", "sh '/tmp/setup.sh'"}, inv.Args)
}

func TestBuildLoginShellInvocation_ReplacesExistingCommandArgument(t *testing.T) {
	inv := BuildLoginShellInvocationWithShell("/bin/bash", []string{"-i", "-c", "tmux attach"}, "sh '/tmp/setup.sh'")
	assert.Equal(t, []string{"-i", "-l", "-c", "sh '/tmp/setup.sh'"}, inv.Args)
}

func TestBuildLoginShellInvocation_HandlesCombinedShortFlags(t *testing.T) {
	inv := BuildLoginShellInvocationWithShell("/bin/zsh", []string{"-lc"}, "sh '/tmp/setup.sh'")
	assert.Equal(t, []string{"-l", "-c", "sh '/tmp/setup.sh'"}, inv.Args)
}

func TestBuildLoginShellInvocation_PowerShellReplacesCommandArgument(t *testing.T) {
	inv := BuildLoginShellInvocationWithShell("pwsh", []string{"-Login", "-Command", "Write-Host hi"}, "Write-Host 'setup'")
	assert.Equal(t, "pwsh", inv.Program)
	assert.Equal(t, []string{"-Login", "-Command", "Write-Host 'setup'"}, inv.Args)
}

func TestShellInvocationToPosix_QuotesEveryArgument(t *testing.T) {
	inv := ShellInvocation{Program: "/bin/zsh", Args: []string{"-l", "-c", "sh '/tmp/setup.sh'"}}
	expected := shQuoteString("/bin/zsh") + " " + shQuoteString("-l") + " " + shQuoteString("-c") + " " + shQuoteString("sh '/tmp/setup.sh'")
	assert.Equal(t, expected, ShellInvocationToPosix(inv))
}

func TestShQuoteString_EscapesSingleQuotes(t *testing.T) {
	assert.Equal(t, "''", shQuoteString(""))
	assert.Equal(t, `'it'\''s'`, shQuoteString("it's"))
}
