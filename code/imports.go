package code

import (
	"regexp"
	"strings"
)

var (
	singleImport = regexp.MustCompile(`^\s*import\s+((?:[\w.]+\s+)?"[^"]+")\s*(?://.*)?$`)
	blockImport  = regexp.MustCompile(`^\s*import\s*\(\s*$`)
	importSpec   = regexp.MustCompile(`^\s*((?:[\w.]+\s+)?"[^"]+")\s*(?://.*)?$`)
	packageLine  = regexp.MustCompile(`^\s*package\s+\w+\s*$`)
)

// splitImports separates import declarations from the statements of a
// snippet. Imports are evaluated one by one so that packages already loaded
// into the environment are not declared twice. Package clauses are dropped.
func splitImports(snippet string) (specs []string, body string) {
	lines := strings.Split(snippet, "\n")
	kept := make([]string, 0, len(lines))
	inBlock := false
	for _, line := range lines {
		switch {
		case inBlock:
			trimmed := strings.TrimSpace(line)
			if trimmed == ")" {
				inBlock = false
				continue
			}
			if m := importSpec.FindStringSubmatch(line); m != nil {
				specs = append(specs, m[1])
			}
			continue
		case blockImport.MatchString(line):
			inBlock = true
			continue
		case packageLine.MatchString(line):
			continue
		}
		if m := singleImport.FindStringSubmatch(line); m != nil {
			specs = append(specs, m[1])
			continue
		}
		kept = append(kept, line)
	}
	return specs, strings.Join(kept, "\n")
}
