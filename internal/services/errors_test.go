package services

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	inner := errors.New("exit status 1")
	err := Wrap(ErrRender, "remotion", "render", "composition AnimatedTitle", inner)

	if !errors.Is(err, ErrRender) {
		t.Fatal("wrapped error should match ErrRender")
	}
	if !errors.Is(err, inner) {
		t.Fatal("wrapped error should preserve the inner error")
	}
	for _, fragment := range []string{"remotion", "render", "AnimatedTitle"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("error %q missing fragment %q", err.Error(), fragment)
		}
	}
}

func TestWrapNilMarkerDefaultsToExternalTool(t *testing.T) {
	err := Wrap(nil, "media", "probe", "", nil)
	if !errors.Is(err, ErrExternalTool) {
		t.Fatal("nil marker should default to ErrExternalTool")
	}
}

func TestWrapEmptyDetail(t *testing.T) {
	err := Wrap(ErrValidation, "", "", "", nil)
	if !strings.Contains(err.Error(), "build failure") {
		t.Errorf("expected fallback detail, got %q", err.Error())
	}
}
