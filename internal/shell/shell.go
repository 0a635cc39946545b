package shell

import (
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// ErrShellNotFound reports that none of the platform's shell candidates is on PATH.
var ErrShellNotFound = errors.New("no compatible shell found")

// Family groups shells that share quoting rules.
type Family int

const (
	FamilyPOSIX Family = iota
	FamilyPowerShell
	FamilyCmd
)

func (f Family) String() string {
	switch f {
	case FamilyPowerShell:
		return "powershell"
	case FamilyCmd:
		return "cmd"
	default:
		return "posix"
	}
}

// Spec describes how to hand a command string to one shell executable.
type Spec struct {
	Name   string
	Family Family
	Args   func(command string) ([]string, error)
}

// Resolved is a Spec paired with the absolute path found on PATH.
type Resolved struct {
	Spec
	Path string
}

// Command returns the argument vector (excluding the executable) for command.
func (r Resolved) Command(command string) ([]string, error) {
	if r.Args == nil {
		return nil, fmt.Errorf("shell %s: no argument template", r.Name)
	}
	return r.Args(command)
}

// LookupFunc reports the full path of an executable name.
type LookupFunc func(name string) (string, bool)

var (
	powerShell = Spec{
		Name:   "powershell.exe",
		Family: FamilyPowerShell,
		Args: func(command string) ([]string, error) {
			encoded, err := EncodePowerShell(command)
			if err != nil {
				return nil, err
			}
			return []string{
				"-NoLogo", "-Mta", "-NoProfile", "-NonInteractive",
				"-WindowStyle", "Hidden", "-EncodedCommand", encoded,
			}, nil
		},
	}
	cmdExe = Spec{
		Name:   "cmd.exe",
		Family: FamilyCmd,
		Args: func(command string) ([]string, error) {
			return []string{"/U", "/C", command}, nil
		},
	}
	zsh = Spec{
		Name:   "zsh",
		Family: FamilyPOSIX,
		Args: func(command string) ([]string, error) {
			return []string{"-l", "-c", command}, nil
		},
	}
	sh = Spec{
		Name:   "sh",
		Family: FamilyPOSIX,
		Args: func(command string) ([]string, error) {
			return []string{"-c", command}, nil
		},
	}
)

var candidateTable = map[string][]Spec{
	"windows": {powerShell, cmdExe},
	"darwin":  {zsh},
}

// Candidates lists the shells tried for goos, in preference order.
func Candidates(goos string) []Spec {
	if specs, ok := candidateTable[goos]; ok {
		out := make([]Spec, len(specs))
		copy(out, specs)
		return out
	}
	return []Spec{sh}
}

// Resolve picks the first available shell for the running platform.
func Resolve() (Resolved, error) {
	return ResolveFor(runtime.GOOS, First)
}

// ResolveFor picks the first candidate for goos that lookup can find.
func ResolveFor(goos string, lookup LookupFunc) (Resolved, error) {
	if lookup == nil {
		lookup = First
	}
	specs := Candidates(goos)
	tried := make([]string, 0, len(specs))
	for _, spec := range specs {
		if path, ok := lookup(spec.Name); ok {
			return Resolved{Spec: spec, Path: path}, nil
		}
		tried = append(tried, spec.Name)
	}
	return Resolved{}, fmt.Errorf("%w for %s (tried %s)", ErrShellNotFound, goos, strings.Join(tried, ", "))
}

// EncodePowerShell returns the -EncodedCommand payload for command. The
// command is suffixed so that powershell exits with the native exit code.
func EncodePowerShell(command string) (string, error) {
	encoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	utf16, err := encoder.String(command + "; exit $LASTEXITCODE")
	if err != nil {
		return "", fmt.Errorf("encode powershell command: %w", err)
	}
	return base64.StdEncoding.EncodeToString([]byte(utf16)), nil
}

var (
	posixQuoter      = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, "`", "\\`")
	powerShellQuoter = strings.NewReplacer("`", "``", `"`, "`\"", `$`, "`$")
)

// FamilyFor is the family normally resolved on goos.
func FamilyFor(goos string) Family {
	if goos == "windows" {
		return FamilyPowerShell
	}
	return FamilyPOSIX
}

// Quote wraps value in double quotes, escaping what family would expand.
func Quote(family Family, value string) string {
	switch family {
	case FamilyPOSIX:
		return `"` + posixQuoter.Replace(value) + `"`
	case FamilyPowerShell:
		return `"` + powerShellQuoter.Replace(value) + `"`
	default:
		return `"` + value + `"`
	}
}

// Invoke renders binary as the first word of a command line. Plain paths are
// left bare; anything else is quoted, with PowerShell's call operator when
// needed.
func Invoke(family Family, binary string) string {
	if !strings.ContainsAny(binary, " \t\"'$`&()[]{};|<>*?!#~%^,") {
		return binary
	}
	if family == FamilyPowerShell {
		return "& " + Quote(family, binary)
	}
	return Quote(family, binary)
}
