// Package meshpart reads parallel spread command files and assigns mesh
// elements to the processors that will receive the per-processor pieces.
package meshpart

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// RestartMode selects which time steps a spread carries into the
// per-processor results files
type RestartMode int

const (
	RestartUnset RestartMode = iota
	RestartOff
	RestartAll
	RestartList
)

// Restart holds the restart-info selection. TimeIndices are 1-based
// time-step indices; index 0 designates the last step in the file.
type Restart struct {
	Mode        RestartMode
	TimeIndices []int
}

// Reserve holds variable counts to reserve space for in the spread files
type Reserve struct {
	Nodal     int
	Elemental int
	Global    int
	NodeSet   int
	SideSet   int
}

// DiskInfo describes how spread files fan out over parallel disks
type DiskInfo struct {
	Count          int   // number of disk controllers, 0 when unconfigured
	List           []int // explicit disk numbers, length Count when present
	Offset         int   // added to round-robin disk numbers
	ZeroPad        bool  // two-digit disk directory names
	NoSubdirectory bool  // files land in the disk root, no subdir component
	StagedWrites   bool

	Root   string
	Subdir string // normalized to end with "/"
}

// Config is the parsed content of a spread command file
type Config struct {
	MeshFile          string
	LoadBalanceFile   string
	ScalarResultsFile string
	OutputBase        string
	NumProcessors     int
	SpreadExtension   string
	UseScalarMesh     bool
	DebugLevel        int
	Restart           Restart
	Reserve           Reserve
	Disk              DiskInfo

	// Unknown retains unrecognized lines for debug review
	Unknown []string
}

// ParseCommandFile reads and parses a spread command file from disk
func ParseCommandFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening command file: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse reads a spread command file. Lines are "key = value" with
// case-insensitive keys; '#' starts a comment; blank lines are skipped.
// Unknown keys are retained in Unknown rather than rejected.
func Parse(r io.Reader) (*Config, error) {
	cfg := &Config{
		SpreadExtension: ".par",
		Disk:            DiskInfo{StagedWrites: true},
	}

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected key = value, got %q", lineNo, line)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		var err error
		switch key {
		case "input fem file":
			cfg.MeshFile = value
		case "lb file":
			cfg.LoadBalanceFile = value
		case "scalar results fem file":
			cfg.ScalarResultsFile = value
		case "parallel results file base name":
			cfg.OutputBase = value
		case "number of processors":
			cfg.NumProcessors, err = parsePositiveInt(value, "number of processors")
		case "file extension for spread files":
			if !strings.HasPrefix(value, ".") {
				value = "." + value
			}
			cfg.SpreadExtension = value
		case "use scalar mesh file":
			cfg.UseScalarMesh = strings.EqualFold(value, "yes")
		case "debug":
			cfg.DebugLevel, err = strconv.Atoi(value)
			if err != nil {
				err = fmt.Errorf("debug level %q is not an integer", value)
			}
		case "restart info":
			err = cfg.parseRestart(value)
		case "reserve space":
			err = cfg.parseReserve(value)
		case "parallel disk info":
			err = cfg.parseDiskInfo(value)
		case "parallel file location":
			err = cfg.parseFileLocation(value)
		default:
			cfg.Unknown = append(cfg.Unknown, fmt.Sprintf("line %d: %s", lineNo, line))
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	// The output base defaults to the load-balance file name minus its
	// extension when not given explicitly
	if cfg.OutputBase == "" && cfg.LoadBalanceFile != "" {
		cfg.OutputBase = strings.TrimSuffix(cfg.LoadBalanceFile,
			filepath.Ext(cfg.LoadBalanceFile))
	}

	return cfg, nil
}

// Validate checks the fields a spread run requires
func (c *Config) Validate() error {
	if c.MeshFile == "" {
		return fmt.Errorf("no input FEM file configured")
	}
	if c.NumProcessors < 1 {
		return fmt.Errorf("number of processors is %d, need at least 1", c.NumProcessors)
	}
	if c.OutputBase == "" {
		return fmt.Errorf("no output base name configured")
	}
	return nil
}

func (c *Config) parseRestart(value string) error {
	for _, opt := range splitSubOptions(value) {
		low := strings.ToLower(opt)
		switch {
		case low == "off":
			c.Restart.Mode = RestartOff
			c.Restart.TimeIndices = nil
		case low == "all":
			c.Restart.Mode = RestartAll
			c.Restart.TimeIndices = nil
		case strings.HasPrefix(low, "list"):
			inner, err := braceList(opt)
			if err != nil {
				return err
			}
			var idx []int
			for _, fld := range strings.FieldsFunc(inner, func(r rune) bool {
				return r == ',' || r == ' ' || r == '\t' || r == ';'
			}) {
				if strings.EqualFold(fld, "last") {
					idx = append(idx, 0)
					continue
				}
				n, err := strconv.Atoi(fld)
				if err != nil {
					return fmt.Errorf("restart list entry %q is not an integer", fld)
				}
				idx = append(idx, n)
			}
			c.Restart.Mode = RestartList
			c.Restart.TimeIndices = idx
		default:
			return fmt.Errorf("unknown restart info option %q", opt)
		}
	}
	return nil
}

func (c *Config) parseReserve(value string) error {
	for _, opt := range splitSubOptions(value) {
		k, v, ok := strings.Cut(opt, "=")
		if !ok {
			return fmt.Errorf("reserve space option %q needs a value", opt)
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 {
			return fmt.Errorf("invalid reserve space count %q", v)
		}
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "nodal":
			c.Reserve.Nodal = n
		case "elemental":
			c.Reserve.Elemental = n
		case "global":
			c.Reserve.Global = n
		case "nodeset":
			c.Reserve.NodeSet = n
		case "sideset":
			c.Reserve.SideSet = n
		}
	}
	return nil
}

func (c *Config) parseDiskInfo(value string) error {
	opts := splitSubOptions(value)
	if len(opts) == 0 {
		return fmt.Errorf("parallel disk info needs at least number=N")
	}

	// The first sub-option must be the controller count
	k, v, ok := strings.Cut(opts[0], "=")
	if !ok || !strings.EqualFold(strings.TrimSpace(k), "number") {
		return fmt.Errorf("first parallel disk info option must be number=N, got %q", opts[0])
	}
	n, err := parsePositiveInt(strings.TrimSpace(v), "disk count")
	if err != nil {
		return err
	}
	c.Disk.Count = n

	for _, opt := range opts[1:] {
		k, v, _ := strings.Cut(opt, "=")
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "list":
			inner, err := braceList(opt)
			if err != nil {
				return err
			}
			var list []int
			for _, fld := range strings.FieldsFunc(inner, func(r rune) bool {
				return r == ',' || r == ' ' || r == '\t' || r == ';'
			}) {
				d, err := strconv.Atoi(fld)
				if err != nil {
					return fmt.Errorf("disk list entry %q is not an integer", fld)
				}
				list = append(list, d)
			}
			if len(list) != c.Disk.Count {
				return fmt.Errorf("disk list has %d entries, number=%d", len(list), c.Disk.Count)
			}
			c.Disk.List = list
		case "offset":
			off, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || off < 0 {
				return fmt.Errorf("invalid disk offset %q", v)
			}
			c.Disk.Offset = off
		case "zeros":
			c.Disk.ZeroPad = true
		case "nosubdirectory":
			c.Disk.NoSubdirectory = true
		case "stage_off":
			c.Disk.StagedWrites = false
		case "stage_on":
			c.Disk.StagedWrites = true
		}
	}
	return nil
}

func (c *Config) parseFileLocation(value string) error {
	for _, opt := range splitSubOptions(value) {
		k, v, ok := strings.Cut(opt, "=")
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "root":
			if v == "" {
				return fmt.Errorf("empty path for parallel file location root")
			}
			c.Disk.Root = v
		case "subdir":
			if v == "" {
				return fmt.Errorf("empty path for parallel file location subdir")
			}
			if !strings.HasSuffix(v, "/") {
				v += "/"
			}
			c.Disk.Subdir = v
		}
	}
	return nil
}

// SpreadPath returns the per-processor file name for proc, of the form
// <root><disk>/<subdir>/<base><ext>.<numprocs>.<proc>. The disk component
// is chosen round-robin over the configured disks and both it and the
// subdir drop out when unconfigured.
func (c *Config) SpreadPath(proc int) string {
	name := fmt.Sprintf("%s%s.%d.%d", c.OutputBase, c.SpreadExtension, c.NumProcessors, proc)

	prefix := c.Disk.Root
	if c.Disk.Count > 0 {
		var disk int
		if len(c.Disk.List) > 0 {
			disk = c.Disk.List[proc%len(c.Disk.List)]
		} else {
			disk = proc%c.Disk.Count + 1 + c.Disk.Offset
		}
		if c.Disk.ZeroPad {
			prefix += fmt.Sprintf("%02d/", disk)
		} else {
			prefix += fmt.Sprintf("%d/", disk)
		}
	}
	if !c.Disk.NoSubdirectory {
		prefix += c.Disk.Subdir
	}
	return prefix + name
}

func parsePositiveInt(s, what string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not an integer", what, s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", what, n)
	}
	return n, nil
}

// splitSubOptions splits a comma-separated option string, leaving commas
// inside {...} lists alone
func splitSubOptions(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				if p := strings.TrimSpace(s[start:i]); p != "" {
					parts = append(parts, p)
				}
				start = i + 1
			}
		}
	}
	if p := strings.TrimSpace(s[start:]); p != "" {
		parts = append(parts, p)
	}
	return parts
}

// braceList returns the text between the first '{' and the following '}'
func braceList(s string) (string, error) {
	i := strings.IndexByte(s, '{')
	if i < 0 {
		return "", fmt.Errorf("missing '{' in %q", s)
	}
	j := strings.IndexByte(s[i:], '}')
	if j < 0 {
		return "", fmt.Errorf("missing '}' in %q", s)
	}
	return s[i+1 : i+j], nil
}
