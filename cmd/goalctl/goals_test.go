package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"savings/internal/cache"
	"savings/internal/core"
	"savings/internal/goals"
	"savings/internal/identity"
	"savings/internal/storage/memory"
)

type cliFixture struct {
	mem    *memory.Store
	events *goals.Recorder
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	f := &cliFixture{mem: memory.New(), events: &goals.Recorder{}}
	orig := openService
	openService = func(ctx context.Context, opts *options, _ io.Writer) (*goals.Service, func() error, error) {
		svc := goals.NewService(f.mem, identity.Static(opts.user), f.events, cache.Options{})
		return svc, func() error { return svc.Shutdown(ctx) }, nil
	}
	t.Cleanup(func() { openService = orig })
	return f
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func createGoal(t *testing.T, user, name, current, target string) string {
	t.Helper()
	out, err := run(t, "--user", user, "--json", "create",
		"--name", name, "--target", target, "--current", current, "--deadline", "2030-06-01")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var g struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(out), &g); err != nil || g.ID == "" {
		t.Fatalf("create output %q: %v", out, err)
	}
	return g.ID
}

func TestCreateAndList(t *testing.T) {
	newCLIFixture(t)
	createGoal(t, "alice", "Emergency fund", "250", "1000")

	out, err := run(t, "--user", "alice", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{"Emergency fund", "$250.00", "$1,000.00", "25%", "Jun 1, 2030"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, "--user", "bob", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No goals yet.") {
		t.Errorf("bob sees %q", out)
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	f := newCLIFixture(t)
	tests := []struct {
		name string
		args []string
	}{
		{"negative target", []string{"--target", "-5", "--deadline", "2030-01-01"}},
		{"zero target", []string{"--target", "0", "--deadline", "2030-01-01"}},
		{"bad deadline", []string{"--target", "10", "--deadline", "01/02/2030"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--user", "alice", "create", "--name", "Trip"}, tt.args...)
			if _, err := run(t, args...); !errors.Is(err, core.ErrValidation) {
				t.Errorf("error = %v, want validation error", err)
			}
		})
	}
	if f.mem.Len() != 0 {
		t.Errorf("store has %d goals after rejected creates", f.mem.Len())
	}
}

func TestRequiresUser(t *testing.T) {
	newCLIFixture(t)
	t.Setenv("SAVINGS_USER", "")
	if _, err := run(t, "list"); !errors.Is(err, core.ErrUnauthenticated) {
		t.Errorf("list without user error = %v", err)
	}
}

func TestAddFunds(t *testing.T) {
	f := newCLIFixture(t)
	id := createGoal(t, "alice", "Trip", "90", "100")

	out, err := run(t, "--user", "alice", "add", id, "5")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "$95.00 of $100.00 (95%)") || strings.Contains(out, "achieved") {
		t.Errorf("first add output = %q", out)
	}

	out, err = run(t, "--user", "alice", "add", id, "10,50")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Goal achieved!") {
		t.Errorf("crossing add output = %q", out)
	}

	if _, err := run(t, "--user", "alice", "add", id, "0"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("add 0 error = %v", err)
	}
	if _, err := run(t, "--user", "bob", "add", id, "1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("add to foreign goal error = %v", err)
	}

	if n := f.events.Count(goals.EventAchieved); n != 1 {
		t.Errorf("achieved events = %d, want 1", n)
	}
	g, err := f.mem.Get(context.Background(), "alice", id)
	if err != nil {
		t.Fatal(err)
	}
	if !g.CurrentAmount.Equal(decimal.RequireFromString("105.50")) {
		t.Errorf("balance = %s, want 105.5", g.CurrentAmount)
	}
}

func TestEditAndShow(t *testing.T) {
	newCLIFixture(t)
	id := createGoal(t, "alice", "Trip", "0", "100")

	if _, err := run(t, "--user", "alice", "edit", id); !errors.Is(err, core.ErrNoEdits) {
		t.Errorf("edit without flags error = %v, want ErrNoEdits", err)
	}
	if _, err := run(t, "--user", "alice", "edit", id, "--name", "Japan", "--target", "3000"); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "--user", "alice", "show", id)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Japan") || !strings.Contains(out, "$3,000.00") {
		t.Errorf("show output = %q", out)
	}
}

func TestDelete(t *testing.T) {
	f := newCLIFixture(t)
	id := createGoal(t, "alice", "Trip", "0", "100")

	if _, err := run(t, "--user", "bob", "delete", id); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign delete error = %v", err)
	}
	if _, err := run(t, "--user", "alice", "delete", id); err != nil {
		t.Fatal(err)
	}
	if f.mem.Len() != 0 {
		t.Error("goal still stored")
	}
	if f.events.Count(goals.EventDeleted) != 1 {
		t.Error("missing deleted event")
	}
}

func TestToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef-test")
	out, err := run(t, "--user", "alice", "token", "--ttl", "1h")
	if err != nil {
		t.Fatal(err)
	}
	sess, err := identity.ParseToken([]byte("0123456789abcdef-test"), strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if sess.UserID != "alice" {
		t.Errorf("UserID = %q", sess.UserID)
	}

	t.Setenv("JWT_SECRET", "")
	if _, err := run(t, "--user", "alice", "token"); err == nil {
		t.Error("token without secret succeeded")
	}
}
