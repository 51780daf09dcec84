//go:build integration

package integration

import (
	"context"
	"os/exec"
	"testing"
)

// composeStack drives the docker compose project the system tests run against.
type composeStack struct {
	file    string // optional -f override
	service string
}

func composeFromEnv() composeStack {
	return composeStack{
		file:    getenv("E2E_COMPOSE_FILE", ""),
		service: getenv("E2E_COMPOSE_SERVICE", "shop"),
	}
}

func (cs composeStack) args(sub ...string) []string {
	args := []string{"compose"}
	if cs.file != "" {
		args = append(args, "-f", cs.file)
	}
	return append(args, sub...)
}

// restart bounces the shop process; sessions live in the client's cookie, so
// nothing on the server side should be lost.
func (cs composeStack) restart(t *testing.T, ctx context.Context) {
	t.Helper()

	out, err := exec.CommandContext(ctx, "docker", cs.args("restart", cs.service)...).CombinedOutput()
	if err != nil {
		t.Fatalf("restart %s: %v\n%s", cs.service, err, out)
	}
}
