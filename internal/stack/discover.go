package stack

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// ErrNoStages is returned when none of the configured stacks yields a stage.
var ErrNoStages = errors.New("no stages found in any configured stack")

// stagePattern matches stage filenames: a zero-padded numeric prefix, an
// underscore, a description, and a recognized prompt extension.
const stagePattern = "[0-9][0-9][0-9]_*.{md,txt,prompt}"

// PluginsDirName is the conventional plugin subdirectory inside a stack.
const PluginsDirName = "plugins"

// StacksDirName is the directory under the workdir that holds stacks.
const StacksDirName = "stacks"

// Discover scans each named stack directory under stacksRoot (non-recursively)
// for stage files and returns the combined list sorted by sequence number
// ascending. Files that do not match the stage pattern are ignored.
//
// Ties between stacks that share a sequence number are broken by the position
// of the stack in the configured list (stable sort), so the order is
// deterministic regardless of platform directory ordering.
//
// A missing or unreadable stack directory is logged as an error but does not
// abort discovery of the remaining stacks.
func Discover(stacksRoot string, stackNames []string, logger *zap.Logger) []Stage {
	var stages []Stage
	for _, name := range stackNames {
		dir := filepath.Join(stacksRoot, name)
		entries, err := os.ReadDir(dir)
		if err != nil {
			logger.Error("scanning stack directory", zap.String("stack", name), zap.Error(err))
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			seq, ok := parseStageName(entry.Name())
			if !ok {
				continue
			}
			stages = append(stages, Stage{
				Stack:    name,
				Sequence: seq,
				Path:     filepath.Join(dir, entry.Name()),
			})
		}
	}

	sort.SliceStable(stages, func(i, j int) bool {
		return stages[i].Sequence < stages[j].Sequence
	})
	return stages
}

// parseStageName reports whether a filename is a stage file and, if so,
// its sequence number.
func parseStageName(name string) (int, bool) {
	ok, err := doublestar.Match(stagePattern, name)
	if err != nil || !ok {
		return 0, false
	}
	seq, err := strconv.Atoi(name[:3])
	if err != nil {
		return 0, false
	}
	return seq, true
}

// InRange filters stages to the inclusive [start, end] sequence range.
// A zero bound leaves that side open.
func InRange(stages []Stage, start, end int) []Stage {
	var out []Stage
	for _, s := range stages {
		if start > 0 && s.Sequence < start {
			continue
		}
		if end > 0 && s.Sequence > end {
			continue
		}
		out = append(out, s)
	}
	return out
}

// MaxSequence returns the highest sequence number across the given stages,
// or 0 for an empty list.
func MaxSequence(stages []Stage) int {
	max := 0
	for _, s := range stages {
		if s.Sequence > max {
			max = s.Sequence
		}
	}
	return max
}

// PluginsDir returns the plugin directory for a stack, which may not exist.
func PluginsDir(stacksRoot, stackName string) string {
	return filepath.Join(stacksRoot, stackName, PluginsDirName)
}

// Validate reports an error if none of the named stacks yielded any stage.
func Validate(stages []Stage, stackNames []string) error {
	if len(stages) == 0 {
		return fmt.Errorf("%w: %v", ErrNoStages, stackNames)
	}
	return nil
}
