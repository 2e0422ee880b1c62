package chat

import (
	"strings"
	"testing"
)

func TestStartChatEmbedsVerbatimQuery(t *testing.T) {
	reply := StartChat("where is the Acme site?")
	if !strings.Contains(reply, `"where is the Acme site?"`) {
		t.Fatalf("reply does not embed the query: %q", reply)
	}
}

func TestStartChatIsDeterministic(t *testing.T) {
	if StartChat("hello") != StartChat("hello") {
		t.Fatalf("expected identical replies for identical queries")
	}
}
