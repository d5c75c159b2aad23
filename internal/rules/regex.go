// internal/rules/regex.go
package rules

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/solatis/cohortkeeper/internal/types"
)

/*
 * Regex operator support.
 *
 * The right-hand side is either a *regexp.Regexp or a string spec:
 *   - "/pattern/flags": the pattern ends at the LAST "/" so patterns may
 *     contain slashes ("/a/b/i" is pattern "a/b" with flag i)
 *   - anything else: the whole string is the pattern, no flags
 *
 * Flags are filtered to the set RE2 understands as inline flags (i, m, s).
 * JavaScript-only flags such as g, y, u, d carry no meaning for a single
 * boolean test and are dropped.
 *
 * Compiled specs are cached process-wide because the same condition is
 * evaluated once per event, possibly from several workers.
 */

// safeRegexFlags are the spec flags passed through to RE2.
const safeRegexFlags = "ims"

// maxCachedPatterns caps the compile cache; misses past the cap still compile.
const maxCachedPatterns = 1024

type regexEntry struct {
	re  *regexp.Regexp
	err error
}

var (
	regexCache     sync.Map // spec -> regexEntry
	regexCacheSize atomic.Int64
)

// parseRegexSpec splits a spec into pattern and filtered flags.
func parseRegexSpec(spec string) (pattern, flags string) {
	last := strings.LastIndex(spec, "/")
	if !strings.HasPrefix(spec, "/") || last <= 0 {
		return spec, ""
	}
	pattern = spec[1:last]
	var kept strings.Builder
	for _, f := range spec[last+1:] {
		if strings.ContainsRune(safeRegexFlags, f) && !strings.ContainsRune(kept.String(), f) {
			kept.WriteRune(f)
		}
	}
	return pattern, kept.String()
}

// compileRegexSpec compiles a spec, consulting the cache first.
func compileRegexSpec(spec string) (*regexp.Regexp, error) {
	if cached, ok := regexCache.Load(spec); ok {
		entry := cached.(regexEntry)
		return entry.re, entry.err
	}

	pattern, flags := parseRegexSpec(spec)
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}
	re, err := regexp.Compile(pattern)

	if regexCacheSize.Load() < maxCachedPatterns {
		if _, loaded := regexCache.LoadOrStore(spec, regexEntry{re: re, err: err}); !loaded {
			regexCacheSize.Add(1)
		}
	}
	return re, err
}

// regexSpecError reports why right cannot be used as a pattern, or nil.
func regexSpecError(right any) error {
	if _, ok := right.(*regexp.Regexp); ok {
		return nil
	}
	spec := targetText(right)
	if _, err := compileRegexSpec(spec); err != nil {
		return fmt.Errorf("%w: %q: %v", types.ErrInvalidRegex, spec, err)
	}
	return nil
}

// matchRegex tests the left side's text form. Compilation failure is false.
func matchRegex(left, right any) bool {
	var re *regexp.Regexp
	switch r := right.(type) {
	case *regexp.Regexp:
		re = r
	default:
		compiled, err := compileRegexSpec(targetText(right))
		if err != nil {
			return false
		}
		re = compiled
	}
	if re == nil {
		return false
	}
	return re.MatchString(toText(left))
}
