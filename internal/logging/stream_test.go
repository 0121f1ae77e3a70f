package logging

import (
	"strings"
	"testing"

	"github.com/coder/websocket"
)

func TestClassifyClose(t *testing.T) {
	tests := []struct {
		code websocket.StatusCode
		want CloseCategory
	}{
		{websocket.StatusNormalClosure, CloseNormal},
		{websocket.StatusAbnormalClosure, CloseNetwork},
		{websocket.StatusPolicyViolation, CloseAuth},
		{websocket.StatusInternalError, CloseServer},
		{websocket.StatusGoingAway, CloseRestart},
		{websocket.StatusCode(4000), CloseUnknown},
	}
	for _, tt := range tests {
		if got := ClassifyClose(tt.code); got != tt.want {
			t.Errorf("ClassifyClose(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestFormatStreamClose(t *testing.T) {
	if got := FormatStreamClose(websocket.StatusNormalClosure, "bye"); got != "" {
		t.Errorf("normal closure formatted as %q", got)
	}
	got := FormatStreamClose(websocket.StatusPolicyViolation, "bad token=abc.def")
	if !strings.Contains(got, "hyperbase login") {
		t.Errorf("auth close lacks login hint: %q", got)
	}
	if strings.Contains(got, "abc.def") {
		t.Errorf("close reason not masked: %q", got)
	}
}
