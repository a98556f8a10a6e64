package manager

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorHelpers_SeeThroughWrapping(t *testing.T) {
	cases := []struct {
		err  error
		is   func(error) bool
		name string
	}{
		{TooBusy{}, IsTooBusy, "TooBusy"},
		{ErrDependencyUnavailable("x"), IsDependencyUnavailable, "DependencyUnavailable"},
		{DownloadFailure{Status: 500}, IsDownloadFailure, "DownloadFailure"},
		{DownloadIncomplete{Got: 1, Want: 2}, IsDownloadIncomplete, "DownloadIncomplete"},
		{InitializationFailure{Err: errLoad}, IsInitializationFailure, "InitializationFailure"},
	}
	for _, c := range cases {
		if !c.is(fmt.Errorf("outer: %w", c.err)) {
			t.Fatalf("%s not detected through wrapping", c.name)
		}
		if c.is(errors.New("other")) {
			t.Fatalf("%s false positive", c.name)
		}
	}
}

func TestErrorMessages(t *testing.T) {
	msg := DownloadIncomplete{Got: 120 << 20, Want: DefaultNominalBytes}.Error()
	if msg != "Download incomplete. Expected ~400MB, got 120MB" {
		t.Fatalf("unexpected message %q", msg)
	}
	ifail := InitializationFailure{Err: errLoad}
	if !strings.HasPrefix(ifail.Error(), "Model initialization failed: bad magic") ||
		!strings.Contains(ifail.Error(), "Try restarting the app or clearing app data.") {
		t.Fatalf("unexpected message %q", ifail.Error())
	}
	if !errors.Is(ifail, errLoad) {
		t.Fatalf("InitializationFailure should unwrap to its cause")
	}
}
