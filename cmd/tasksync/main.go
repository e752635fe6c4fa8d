package main

import (
	"os"
	"strings"

	"github.com/google/uuid"

	"tasksync/internal/cli"
)

func isTaskID(s string) bool {
	_, err := uuid.Parse(strings.TrimSpace(s))
	return err == nil
}

// rewriteDirectTaskLookupArgs makes `tasksync <task-id>` work like
// `tasksync tasks show <task-id>`. Cobra treats the first positional token as
// a subcommand, so argv is rewritten before parsing. Persistent flags may come
// first, so the first positional token is searched for, not just argv[1].
func rewriteDirectTaskLookupArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}

	// Unknown flags are skipped without consuming a value so the id is never eaten.
	valueFlags := map[string]bool{
		"--config":   true,
		"--dir":      true,
		"--dsn":      true,
		"--group-by": true,
		"--sort-by":  true,
		"--view":     true,
		"--tab":      true,
		"--member":   true,
		"--format":   true,
	}
	boolFlags := map[string]bool{
		"--pretty": true,
	}

	show := func(i int) []string {
		out := make([]string, 0, len(argv)+2)
		out = append(out, argv[:i]...)
		out = append(out, "tasks", "show")
		return append(out, argv[i:]...)
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) && isTaskID(argv[i+1]) {
				return show(i + 1)
			}
			return argv
		}
		if strings.HasPrefix(a, "-") {
			switch {
			case strings.Contains(a, "="), boolFlags[a]:
			case valueFlags[a]:
				i++
			}
			continue
		}
		if isTaskID(a) {
			return show(i)
		}
		return argv
	}
	return argv
}

func main() {
	os.Args = rewriteDirectTaskLookupArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
