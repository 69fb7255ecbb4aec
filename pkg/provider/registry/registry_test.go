package registry

import (
	"context"
	"testing"

	"github.com/strom-dev/strom/pkg/api"
	"github.com/strom-dev/strom/pkg/provider"
)

// fakeProvider is a minimal Provider for registry tests.
type fakeProvider struct {
	name string
}

func (f *fakeProvider) Name() string        { return f.name }
func (f *fakeProvider) SupportsTools() bool { return false }
func (f *fakeProvider) AvailableModels(context.Context) ([]api.ModelInfo, error) {
	return []api.ModelInfo{{ID: f.name + "-model"}}, nil
}
func (f *fakeProvider) ContextWindowSize(string) int { return provider.DefaultContextWindow }
func (f *fakeProvider) Complete(context.Context, *api.CompletionRequest) (*api.CompletionResult, error) {
	return &api.CompletionResult{Content: "ok"}, nil
}
func (f *fakeProvider) StreamComplete(context.Context, *api.CompletionRequest) (<-chan api.StreamEvent, error) {
	ch := make(chan api.StreamEvent)
	close(ch)
	return ch, nil
}
func (f *fakeProvider) Close() error { return nil }

func TestRegisterDuplicateIsNoOp(t *testing.T) {
	r := New()
	first := &fakeProvider{name: "a"}
	second := &fakeProvider{name: "a"}

	if err := r.Register(first); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(second, AsDefault()); err != nil {
		t.Fatalf("duplicate register should not error: %v", err)
	}

	names := r.Names()
	if len(names) != 1 || names[0] != "a" {
		t.Fatalf("expected exactly one entry named a, got %v", names)
	}

	// The duplicate must not have changed which instance is registered
	// nor which provider is default.
	got, err := r.Get("a")
	if err != nil {
		t.Fatal(err)
	}
	if got != provider.Provider(first) {
		t.Error("duplicate registration overwrote the original instance")
	}
	def, err := r.Default()
	if err != nil {
		t.Fatal(err)
	}
	if def != provider.Provider(first) {
		t.Error("duplicate registration changed the default")
	}
}

func TestFirstRegistrationIsImplicitDefault(t *testing.T) {
	r := New()
	a := &fakeProvider{name: "a"}
	b := &fakeProvider{name: "b"}

	r.Register(a)
	r.Register(b)

	def, err := r.Default()
	if err != nil {
		t.Fatal(err)
	}
	if def.Name() != "a" {
		t.Errorf("default = %q, want first-registered a", def.Name())
	}
}

func TestExplicitDefaultWins(t *testing.T) {
	r := New()
	r.Register(&fakeProvider{name: "a"})
	r.Register(&fakeProvider{name: "b"}, AsDefault())

	def, err := r.Default()
	if err != nil {
		t.Fatal(err)
	}
	if def.Name() != "b" {
		t.Errorf("default = %q, want explicit b", def.Name())
	}
}

func TestSoleProviderIsDefault(t *testing.T) {
	// Regardless of the default flag, the only registered provider is
	// the default.
	r := New()
	r.Register(&fakeProvider{name: "solo"})

	def, err := r.Default()
	if err != nil {
		t.Fatal(err)
	}
	if def.Name() != "solo" {
		t.Errorf("default = %q, want solo", def.Name())
	}
}

func TestDefaultPreferenceOrder(t *testing.T) {
	// With no explicit default, the preference list breaks the tie.
	r := New(WithPreference("openai", "anthropic"))
	r.Register(&fakeProvider{name: "anthropic"})
	r.Register(&fakeProvider{name: "openai"})

	// First registration made anthropic the implicit default, so the
	// preference order only matters when nothing is designated.
	r2 := New(WithPreference("openai", "anthropic"))
	r2.providers["anthropic"] = &fakeProvider{name: "anthropic"}
	r2.providers["openai"] = &fakeProvider{name: "openai"}
	r2.names = []string{"anthropic", "openai"}

	def, err := r2.Default()
	if err != nil {
		t.Fatal(err)
	}
	if def.Name() != "openai" {
		t.Errorf("default = %q, want preference winner openai", def.Name())
	}
}

func TestGetMissing(t *testing.T) {
	r := New()
	_, err := r.Get("ghost")
	if !api.IsCode(err, api.CodeProviderNotFound) {
		t.Fatalf("expected provider_not_found, got %v", err)
	}
}

func TestDefaultEmptyRegistry(t *testing.T) {
	r := New()
	_, err := r.Default()
	if !api.IsCode(err, api.CodeProviderNotFound) {
		t.Fatalf("expected provider_not_found, got %v", err)
	}
}

func TestRegisterRejectsInvalidProvider(t *testing.T) {
	r := New()
	if err := r.Register(nil); err == nil {
		t.Error("nil provider should be rejected")
	}
	if err := r.Register(&fakeProvider{name: ""}); err == nil {
		t.Error("nameless provider should be rejected")
	}
}

func TestGlobalHandle(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	if err := RegisterProvider(&fakeProvider{name: "a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := GetProvider("a"); err != nil {
		t.Errorf("global lookup failed: %v", err)
	}
	def, err := DefaultProvider()
	if err != nil || def.Name() != "a" {
		t.Errorf("global default = %v, %v", def, err)
	}

	// Init swaps the handle wholesale.
	Init(New())
	if _, err := GetProvider("a"); err == nil {
		t.Error("Init should have replaced the registry")
	}
}
