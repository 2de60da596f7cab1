package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/taskgraph/pkg/observability"
)

func TestRegisterHooks(t *testing.T) {
	observability.Reset()
	t.Cleanup(observability.Reset)

	var buf bytes.Buffer
	c := New(&buf, LogInfo)
	c.registerHooks()
	if _, ok := observability.Pipeline().(observability.NoopPipelineHooks); !ok {
		t.Fatal("hooks registered at info level")
	}

	c.SetLogLevel(LogDebug)
	c.registerHooks()
	observability.Validation().OnValidate("ship", "test", 0, 1, time.Millisecond)
	observability.Pipeline().OnPublish(context.Background(), "web", 7, false)
	observability.Pipeline().OnPublish(context.Background(), "web", 8, true)

	out := buf.String()
	for _, want := range []string{"validated dependency", "dependent=ship", "warnings=1", "discarded stale view", "generation=7"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "generation=8") {
		t.Error("accepted publish should not be logged")
	}
}
