package shell

import (
	"fmt"
	"strings"
)

// quote wraps a DOS path in double quotes when it contains spaces.
func quote(s string) string {
	if strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}

// LaunchCommands returns the commands that start the program at guestPath,
// e.g. `C:\GAMES\KEEN\KEEN4.EXE` becomes "C:", `CD \GAMES\KEEN`, "KEEN4.EXE".
// Paths are sent with DirectEncoding; args are user text and use
// DisplayEncoding as part of the final command.
func LaunchCommands(guestPath string, args string) ([]Command, error) {
	guestPath = strings.ReplaceAll(guestPath, "/", `\`)

	letter, rest, ok := strings.Cut(guestPath, ":")
	if !ok || len(letter) != 1 {
		return nil, fmt.Errorf("guest path %q has no drive letter", guestPath)
	}
	letter = strings.ToUpper(letter)

	rest = `\` + strings.TrimLeft(rest, `\`)
	i := strings.LastIndex(rest, `\`)
	dir, program := rest[:i], rest[i+1:]
	if program == "" {
		return nil, fmt.Errorf("guest path %q names a directory, not a program", guestPath)
	}
	if dir == "" {
		dir = `\`
	}

	commands := []Command{
		{Text: letter + ":", Encoding: DirectEncoding},
		{Text: "CD " + quote(dir), Encoding: DirectEncoding},
	}

	run := Command{Text: quote(program), Encoding: DirectEncoding}
	if args = strings.TrimSpace(args); args != "" {
		run = Command{Text: quote(program) + " " + args, Encoding: DisplayEncoding}
	}
	return append(commands, run), nil
}
