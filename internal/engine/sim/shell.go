package sim

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/boxer-emu/boxer/internal/drive"
	"github.com/boxer-emu/boxer/internal/engine"
	"github.com/boxer-emu/boxer/internal/process"
)

var programExts = []string{".COM", ".EXE", ".BAT"}

// run interprets one command line.
func (e *Engine) run(line string) {
	line = strings.TrimPrefix(strings.TrimSpace(line), "@")
	if line == "" {
		return
	}

	name, args, _ := strings.Cut(line, " ")
	args = strings.TrimSpace(args)
	upper := strings.ToUpper(name)

	// CD\GAMES and CD.. are valid without a space
	if strings.HasPrefix(upper, `CD\`) || strings.HasPrefix(upper, "CD.") {
		upper, args = "CD", strings.TrimSpace(name[2:]+" "+args)
	}

	if len(upper) == 2 && upper[1] == ':' {
		e.switchDrive(upper[:1])
		return
	}

	switch upper {
	case "CD", "CHDIR":
		e.chdir(args)
	case "DIR":
		e.dir()
	case "ECHO":
		fmt.Fprintln(e.out, args)
	case "REM", "CLS":
	case "EXIT":
		e.exit = true
	default:
		e.launch(name, args)
	}
}

func (e *Engine) switchDrive(key string) {
	if _, ok := e.drives[key]; !ok {
		fmt.Fprintf(e.out, "Drive %s does not exist!\n", key)
		return
	}
	e.current = key
}

func (e *Engine) cwdPath() string {
	return e.current + ":" + e.cwd[e.current]
}

// resolveDir returns the absolute DOS directory for arg on the current drive.
func (e *Engine) resolveDir(arg string) string {
	arg = strings.ToUpper(strings.ReplaceAll(arg, `\`, "/"))
	if !strings.HasPrefix(arg, "/") {
		arg = strings.ReplaceAll(e.cwd[e.current], `\`, "/") + "/" + arg
	}
	return strings.ReplaceAll(path.Clean("/"+arg), "/", `\`)
}

func (e *Engine) chdir(arg string) {
	if arg == "" {
		fmt.Fprintln(e.out, e.cwdPath())
		return
	}
	dir := e.resolveDir(strings.Trim(arg, `"`))

	h := e.drives[e.current]
	if h.Kind == drive.KindDirectory {
		info, err := lookupHost(h.Source, dir)
		if err != nil || !info.IsDir() {
			fmt.Fprintf(e.out, "Unable to change to: %s.\n", arg)
			return
		}
	}
	e.cwd[e.current] = dir
}

func (e *Engine) dir() {
	h := e.drives[e.current]
	fmt.Fprintf(e.out, " Directory of %s\n\n", e.cwdPath())

	if h.Kind != drive.KindDirectory {
		if e.current == internalDrive {
			for _, name := range process.InternalNames() {
				fmt.Fprintf(e.out, "%-12s\n", name+".COM")
			}
		}
		return
	}

	hostDir, err := hostPath(h.Source, e.cwd[e.current])
	if err != nil {
		return
	}
	entries, err := os.ReadDir(hostDir)
	if err != nil {
		fmt.Fprintf(e.out, "Unable to read %s\n", e.cwdPath())
		return
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := strings.ToUpper(entry.Name())
		if entry.IsDir() {
			name += "\t<DIR>"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintln(e.out, n)
	}
}

// launch starts a program, batch file or internal command.
func (e *Engine) launch(name, args string) {
	p, ok := e.findProgram(name)
	if !ok {
		fmt.Fprintf(e.out, "Illegal command: %s.\n", name)
		return
	}

	if strings.HasSuffix(p.Name, ".BAT") {
		lines, err := readBatch(p.HostPath)
		if err != nil {
			fmt.Fprintf(e.out, "Unable to read %s.\n", p.GuestPath)
			return
		}
		e.startBatch(lines)
		return
	}

	if p.Name == "MOUNT.COM" {
		e.mountCommand(args)
	}
	e.startProgram(p)
}

// findProgram looks name up in the current directory and then on the
// internal drive.
func (e *Engine) findProgram(name string) (engine.Program, bool) {
	name = strings.ToUpper(strings.ReplaceAll(name, "/", `\`))
	explicit := strings.ContainsAny(name, `:\`)

	key, dir := e.current, e.cwd[e.current]
	if k, rest, ok := strings.Cut(name, ":"); ok && len(k) == 1 {
		key, name = k, rest
		dir = `\`
	}
	if i := strings.LastIndex(name, `\`); i >= 0 {
		dir = e.resolveDirOn(key, name[:i+1])
		name = name[i+1:]
	}

	candidates := []string{name}
	if path.Ext(name) == "" {
		candidates = candidates[:0]
		for _, ext := range programExts {
			candidates = append(candidates, name+ext)
		}
	}

	for _, c := range candidates {
		if p, ok := e.programOn(key, dir, c); ok {
			return p, true
		}
	}
	if key != internalDrive && !explicit {
		for _, c := range candidates {
			if p, ok := e.programOn(internalDrive, `\`, c); ok {
				return p, true
			}
		}
	}
	return engine.Program{}, false
}

func (e *Engine) resolveDirOn(key, dir string) string {
	if strings.HasPrefix(dir, `\`) {
		return strings.ReplaceAll(path.Clean(strings.ReplaceAll(dir, `\`, "/")), "/", `\`)
	}
	cur := e.current
	e.current = key
	defer func() { e.current = cur }()
	return e.resolveDir(dir)
}

func (e *Engine) programOn(key, dir, name string) (engine.Program, bool) {
	h, ok := e.drives[key]
	if !ok {
		return engine.Program{}, false
	}

	guest := key + ":" + strings.TrimSuffix(dir, `\`) + `\` + name
	switch h.Kind {
	case drive.KindInternal:
		if !process.IsInternal(name) || dir != `\` {
			return engine.Program{}, false
		}
		return engine.Program{Name: name, GuestPath: guest}, true
	case drive.KindDirectory:
		host, err := hostPath(h.Source, strings.TrimSuffix(dir, `\`)+`\`+name)
		if err != nil {
			return engine.Program{}, false
		}
		if info, err := os.Stat(host); err != nil || info.IsDir() {
			return engine.Program{}, false
		}
		return engine.Program{Name: name, GuestPath: guest, HostPath: host}, true
	default:
		// Image contents are not visible to the simulation
		return engine.Program{}, false
	}
}

// mountCommand implements `MOUNT X path` for host directories.
func (e *Engine) mountCommand(args string) {
	letter, source, ok := strings.Cut(args, " ")
	if !ok {
		fmt.Fprintln(e.out, "Usage: MOUNT drive-letter local-directory")
		return
	}
	b, err := drive.Parse(letter + "=" + strings.Trim(strings.TrimSpace(source), `"`))
	if err != nil {
		fmt.Fprintf(e.out, "%v\n", err)
		return
	}
	if err := e.Mount(b.Key, b.Handle); err != nil {
		fmt.Fprintf(e.out, "%v\n", err)
		return
	}
	fmt.Fprintf(e.out, "Drive %s is mounted as %s\n", b.Key, b.Handle.Source)
}

func readBatch(hostPath string) ([]string, error) {
	f, err := os.Open(hostPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, decode(scanner.Bytes()))
	}
	return lines, scanner.Err()
}

// hostPath maps a DOS path below root to the host, matching each component
// case-insensitively.
func hostPath(root, dosPath string) (string, error) {
	cur := root
	for _, part := range strings.Split(dosPath, `\`) {
		if part == "" {
			continue
		}
		entries, err := os.ReadDir(cur)
		if err != nil {
			return "", err
		}
		found := ""
		for _, entry := range entries {
			if strings.EqualFold(entry.Name(), part) {
				found = entry.Name()
				break
			}
		}
		if found == "" {
			return "", fmt.Errorf("%s: %w", part, os.ErrNotExist)
		}
		cur = filepath.Join(cur, found)
	}
	return cur, nil
}

func lookupHost(root, dosPath string) (os.FileInfo, error) {
	p, err := hostPath(root, dosPath)
	if err != nil {
		return nil, err
	}
	return os.Stat(p)
}
