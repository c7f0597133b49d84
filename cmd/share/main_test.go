package main

import (
	"errors"
	"strings"
	"testing"

	"fileshare/internal/client"
	"fileshare/internal/linkname"
)

func TestRunRejectsInvalidLink(t *testing.T) {
	for _, name := range []string{"-flag", "a/b", strings.Repeat("x", linkname.MaxLength+1)} {
		link = name
		err := run(rootCmd, []string{"does-not-exist"})

		var verr *client.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("link %q: expected ValidationError, got %v", name, err)
		}
		if verr.Arg != name {
			t.Errorf("link %q: error names %q", name, verr.Arg)
		}
	}
	link = ""
}
