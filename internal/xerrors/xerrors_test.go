package xerrors

import (
	"errors"
	"io"
	"runtime"
	"strings"
	"testing"
)

func frameFunc(pc uintptr) string {
	fr, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	return fr.Function
}

func TestNew_CapturesCallerStack(t *testing.T) {
	err := New("boom")
	if err.Error() != "boom" {
		t.Fatalf("Error() = %q", err.Error())
	}
	tr := err.(*traced)
	if len(tr.StackPCs()) == 0 {
		t.Fatal("no stack captured")
	}
	if fn := frameFunc(tr.PC()); !strings.HasSuffix(fn, "TestNew_CapturesCallerStack") {
		t.Fatalf("first frame = %s", fn)
	}
}

func TestNewf(t *testing.T) {
	err := Newf("bin %s: status %d", "abc", 404)
	if err.Error() != "bin abc: status 404" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if !HasStack(err) {
		t.Fatal("Newf should carry a stack")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "x") != nil || Wrapf(nil, "x %d", 1) != nil {
		t.Fatal("wrapping nil must return nil")
	}

	err := Wrap(io.ErrUnexpectedEOF, "read document")
	if err.Error() != "read document: unexpected EOF" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatal("Wrap must keep the chain")
	}
	tr := err.(*traced)
	if tr.StackPCs() != nil {
		t.Fatal("Wrap should record one frame, not a stack")
	}
	if fn := frameFunc(tr.PC()); !strings.HasSuffix(fn, "TestWrap") {
		t.Fatalf("wrap frame = %s", fn)
	}

	err = Wrapf(err, "fetch %s", "bin")
	if err.Error() != "fetch bin: read document: unexpected EOF" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestEnsureTrace(t *testing.T) {
	if EnsureTrace(nil) != nil {
		t.Fatal("nil must stay nil")
	}

	plain := errors.New("plain")
	got := EnsureTrace(plain)
	if !HasStack(got) || !errors.Is(got, plain) {
		t.Fatal("EnsureTrace should add a stack and keep the chain")
	}
	if got.Error() != "plain" {
		t.Fatalf("Error() = %q", got.Error())
	}

	already := New("traced")
	if EnsureTrace(already) != already {
		t.Fatal("EnsureTrace must not double-wrap")
	}
	wrapped := Wrap(already, "outer")
	if EnsureTrace(wrapped) != wrapped {
		t.Fatal("a stack deeper in the chain counts")
	}
}
