package log

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

type hasPC interface{ PC() uintptr }

type hasStack interface{ StackPCs() []uintptr }

// errorKV describes err for an error record: the error itself, the first
// non-wrapper type, the root cause type, each message along the chain and,
// optionally, where each wrap happened.
func errorKV(err error, links bool, maxLinks int) []any {
	kv := []any{
		"err", err,
		"error_type", surfaceType(err),
		"cause_type", fmt.Sprintf("%T", rootCause(err)),
	}
	if chain := errorChain(err); len(chain) > 1 {
		kv = append(kv, "error_chain", chain)
	}
	if links {
		kv = append(kv, "error_links", errorLinks(err, maxLinks))
	}
	return kv
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// surfaceType skips xerrors and fmt.Errorf wrappers, so a store.Failure
// wrapped twice still reports as *store.Failure.
func surfaceType(err error) string {
	for e := err; e != nil; e = errors.Unwrap(e) {
		t := reflect.TypeOf(e)
		u := t
		for u.Kind() == reflect.Pointer {
			u = u.Elem()
		}
		if strings.HasSuffix(u.PkgPath(), "/internal/xerrors") {
			continue
		}
		if u.PkgPath() == "fmt" && u.Name() == "wrapError" {
			continue
		}
		return t.String()
	}
	return fmt.Sprintf("%T", err)
}

// errorChain lists the distinct messages from outermost to root, then the
// members of a joined error.
func errorChain(err error) []string {
	var out []string
	add := func(s string) {
		if len(out) == 0 || out[len(out)-1] != s {
			out = append(out, s)
		}
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		add(e.Error())
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range j.Unwrap() {
			add(e.Error())
		}
	}
	return out
}

func errorLinks(err error, max int) []map[string]any {
	var links []map[string]any
	for depth, e := 0, err; e != nil && depth < max; depth, e = depth+1, errors.Unwrap(e) {
		link := map[string]any{"msg": e.Error()}
		fr, ok := siteOf(e)
		if ok {
			link["func"], link["file"], link["line"] = fr.Function, fr.File, fr.Line
		}
		if depth == 0 || ok {
			links = append(links, link)
		}
	}
	return links
}

// siteOf is where e itself was created or wrapped, if it recorded that.
func siteOf(e error) (runtime.Frame, bool) {
	if hp, ok := e.(hasPC); ok && hp.PC() != 0 {
		fr, _ := runtime.CallersFrames([]uintptr{hp.PC()}).Next()
		return fr, true
	}
	if hs, ok := e.(hasStack); ok {
		frames := runtime.CallersFrames(hs.StackPCs())
		for {
			fr, more := frames.Next()
			if fr.Function != "" && !internalFrame(fr.Function) {
				return fr, true
			}
			if !more {
				break
			}
		}
	}
	return runtime.Frame{}, false
}

// stackOf returns the first full stack recorded in err's chain.
func stackOf(err error) []uintptr {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if hs, ok := e.(hasStack); ok {
			if pcs := hs.StackPCs(); len(pcs) > 0 {
				return pcs
			}
		}
	}
	return nil
}

func internalFrame(fn string) bool {
	return strings.HasPrefix(fn, "runtime.") ||
		strings.HasPrefix(fn, "log/slog.") ||
		strings.Contains(fn, "/internal/log.") ||
		strings.Contains(fn, "/internal/xerrors.")
}

// renderStack writes func and file:line pairs, dropping the logger and
// xerrors frames on top and stopping at the runtime.
func renderStack(pcs []uintptr) string {
	frames := runtime.CallersFrames(pcs)
	var b strings.Builder
	started := false
	for {
		fr, more := frames.Next()
		if strings.HasPrefix(fr.Function, "runtime.") {
			break
		}
		if !started && fr.Function != "" && !internalFrame(fr.Function) {
			started = true
		}
		if started {
			fmt.Fprintf(&b, "%s\n\t%s:%d\n", fr.Function, fr.File, fr.Line)
		}
		if !more {
			break
		}
	}
	return strings.TrimSpace(b.String())
}
