package commands

import (
	"context"
	"flag"
	"io"
	"testing"

	"edger/internal/config"
	"edger/internal/service"
)

type stubCmd struct {
	name    string
	aliases []string
}

func (c stubCmd) Name() string                   { return c.name }
func (c stubCmd) Aliases() []string              { return c.aliases }
func (c stubCmd) Synopsis() string               { return "" }
func (c stubCmd) Usage() string                  { return "" }
func (c stubCmd) Needs() service.Needs           { return 0 }
func (c stubCmd) RegisterFlags(fs *flag.FlagSet) {}
func (c stubCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	return 0
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(stubCmd{name: "inbox", aliases: []string{"mail"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register(stubCmd{name: "events"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cmd, ok := r.Find("mail"); !ok || cmd.Name() != "inbox" {
		t.Errorf("expected alias to resolve to inbox, got %v", cmd)
	}
	if _, ok := r.Find("calendar"); ok {
		t.Error("expected unknown command not to resolve")
	}

	all := r.All()
	if len(all) != 2 || all[0].Name() != "events" || all[1].Name() != "inbox" {
		t.Errorf("expected events, inbox; got %v", all)
	}
}

func TestRegistry_Clash(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(stubCmd{name: "inbox", aliases: []string{"mail"}})

	tests := []struct {
		name string
		cmd  stubCmd
		want string
	}{
		{"name", stubCmd{name: "inbox"}, "command already registered: inbox"},
		{"name is alias", stubCmd{name: "mail"}, "command already registered: mail"},
		{"alias is name", stubCmd{name: "search", aliases: []string{"inbox"}}, "command already registered: inbox"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(tt.cmd)
			if err == nil || err.Error() != tt.want {
				t.Errorf("expected %q, got %v", tt.want, err)
			}
		})
	}
	if _, ok := r.Find("search"); ok {
		t.Error("expected failed registration to leave the registry unchanged")
	}
}
