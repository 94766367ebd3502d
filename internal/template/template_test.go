package template

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/common"
)

func TestParseStored(t *testing.T) {
	want := []Field{
		{Name: "vendor", Type: constants.FieldString},
		{Name: "amount", Type: constants.FieldFloat},
		{Name: "paid", Type: constants.FieldBoolean},
	}

	tests := []struct {
		name string
		blob string
	}{
		{name: "python dict literal", blob: `{'vendor': 'str', 'amount': 'float', 'paid': 'bool'}`},
		{name: "json", blob: `{"vendor":"string","amount":"number","paid":"boolean"}`},
		{name: "json string wrapping literal", blob: `"{'vendor': 'str', 'amount': 'float', 'paid': 'bool'}"`},
		{name: "json string wrapping json", blob: `"{\"vendor\":\"str\",\"amount\":\"float\",\"paid\":\"bool\"}"`},
		{name: "whitespace and case", blob: "  {'vendor': ' STR ', 'amount': 'Float', 'paid': 'BOOLEAN'}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl, err := ParseStored("custom", []byte(tt.blob))
			require.NoError(t, err)
			assert.Equal(t, "custom", tpl.Name)
			assert.False(t, tpl.Static)
			if diff := cmp.Diff(want, tpl.Fields); diff != "" {
				t.Fatalf("fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseStored_KeepsDeclaredOrder(t *testing.T) {
	tpl, err := ParseStored("t", []byte(`{'z': 'str', 'a': 'float', 'm': 'str', 'a': 'bool'}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, tpl.FieldNames())
	ft, ok := tpl.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, constants.FieldBoolean, ft)
}

func TestParseStored_Invalid(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{name: "unknown type tag", blob: `{'amount': 'decimal'}`},
		{name: "nested value", blob: `{"amount": {"type": "float"}}`},
		{name: "array", blob: `["amount"]`},
		{name: "empty object", blob: `{}`},
		{name: "garbage", blob: `amount=float`},
		{name: "trailing data", blob: `{"amount":"float"} {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStored("bad", []byte(tt.blob))
			require.ErrorIs(t, err, common.ErrInvalidTemplate)
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, `{"a": "str"}`, string(Normalize([]byte(`{'a': 'str'}`))))
	// already valid JSON is left alone even when values carry apostrophes
	assert.Equal(t, `{"vendor's name":"str"}`, string(Normalize([]byte(`{"vendor's name":"str"}`))))
	assert.Equal(t, `{"a": "str"}`, string(Normalize([]byte(`"{'a': 'str'}"`))))
}

type fakeStore struct {
	calls int
	blobs map[string]string
	err   error
}

func (f *fakeStore) Get(_ context.Context, name string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.blobs[name]
	if !ok {
		return nil, common.ErrNotFound
	}
	return []byte(b), nil
}

func (f *fakeStore) Close() error { return nil }

func TestResolver_StaticNeverHitsStore(t *testing.T) {
	store := &fakeStore{err: errors.New("must not be called")}
	r := NewResolver(store, nil)

	tpl, err := r.Resolve(context.Background(), constants.StaticInvoiceTemplate)
	require.NoError(t, err)
	assert.True(t, tpl.Static)
	assert.NotEmpty(t, tpl.Schema)
	assert.Contains(t, tpl.FieldNames(), "total_amount")
	assert.Zero(t, store.calls)

	// callers get a copy; mutating it leaves the registry intact
	tpl.Fields[0].Name = "mutated"
	tpl.Schema["type"] = "array"
	again, err := r.Resolve(context.Background(), constants.StaticInvoiceTemplate)
	require.NoError(t, err)
	assert.Equal(t, "invoice_number", again.Fields[0].Name)
	assert.Equal(t, "object", again.Schema["type"])
}

func TestResolver_Dynamic(t *testing.T) {
	store := &fakeStore{blobs: map[string]string{
		"simple": `{'amount': 'float', 'vendor': 'str'}`,
		"broken": `{'amount': 'money'}`,
	}}
	r := NewResolver(store, nil)

	first, err := r.Resolve(context.Background(), "simple")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "simple")
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("resolve is not idempotent (-first +second):\n%s", diff)
	}

	_, err = r.Resolve(context.Background(), "unknown")
	require.ErrorIs(t, err, common.ErrTemplateNotFound)

	_, err = r.Resolve(context.Background(), "broken")
	require.ErrorIs(t, err, common.ErrInvalidTemplate)
	require.NotErrorIs(t, err, common.ErrTemplateNotFound)

	_, err = r.Resolve(context.Background(), "  ")
	require.ErrorIs(t, err, common.ErrTemplateNotFound)
}

func TestResolver_TransportFailureIsNotFound(t *testing.T) {
	r := NewResolver(&fakeStore{err: errors.New("connection refused")}, nil)
	_, err := r.Resolve(context.Background(), "simple")
	require.ErrorIs(t, err, common.ErrTemplateNotFound)

	_, err = NewResolver(nil, nil).Resolve(context.Background(), "simple")
	require.ErrorIs(t, err, common.ErrTemplateNotFound)
}

func TestInvokeStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "upload", r.Header.Get("dapr-app-id"))
		switch r.URL.Path {
		case "/template/simple":
			_, _ = w.Write([]byte(`{"amount":"float","vendor":"str"}`))
		default:
			http.Error(w, `{"detail":"Template not found"}`, http.StatusNotFound)
		}
	}))
	defer srv.Close()
	u, _ := url.Parse(srv.URL)

	cfg := common.DaprConfig{Endpoint: "http://" + u.Hostname(), Port: u.Port(), AppID: "upload"}
	r := NewResolver(NewInvokeStore(cfg, 0, nil), nil)

	tpl, err := r.Resolve(context.Background(), "simple")
	require.NoError(t, err)
	assert.Equal(t, []string{"amount", "vendor"}, tpl.FieldNames())

	_, err = r.Resolve(context.Background(), "other")
	require.ErrorIs(t, err, common.ErrTemplateNotFound)
}

func TestInvokeStore_TokenDropsPort(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("dapr-api-token")
		_, _ = w.Write([]byte(`{"amount":"float"}`))
	}))
	defer srv.Close()

	// the httptest URL already carries the port; a token must stop us adding another
	cfg := common.DaprConfig{Endpoint: srv.URL, Port: "1", AppID: "upload", APIToken: "tok"}
	_, err := NewInvokeStore(cfg, 0, nil).Get(context.Background(), "simple")
	require.NoError(t, err)
	assert.Equal(t, "tok", gotToken)

	assert.Equal(t, "http://localhost:3500", daprBase(common.DaprConfig{Endpoint: "http://localhost/", Port: "3500"}))
}

func TestStateStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1.0/state/kvstore/simple":
			_, _ = w.Write([]byte(`"{'amount': 'float', 'paid': 'bool'}"`))
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	cfg := common.DaprConfig{Endpoint: srv.URL, StateStore: "kvstore", APIToken: "tok"}
	r := NewResolver(NewStateStore(cfg, 0, nil), nil)

	tpl, err := r.Resolve(context.Background(), "simple")
	require.NoError(t, err)
	assert.Equal(t, []string{"amount", "paid"}, tpl.FieldNames())

	_, err = r.Resolve(context.Background(), "missing")
	require.ErrorIs(t, err, common.ErrTemplateNotFound)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("template:simple", `{'amount': 'float'}`))

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, "template:")
	defer store.Close()

	b, err := store.Get(context.Background(), "simple")
	require.NoError(t, err)
	assert.Equal(t, `{'amount': 'float'}`, string(b))

	_, err = store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestBlobFromValue(t *testing.T) {
	b, err := blobFromValue("{'a': 'str'}")
	require.NoError(t, err)
	assert.Equal(t, "{'a': 'str'}", string(b))

	b, err = blobFromValue(map[string]any{"a": "float"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"float"}`, string(b))

	_, err = blobFromValue(42)
	require.ErrorIs(t, err, common.ErrInvalidTemplate)
}

func TestNewStore_UnsupportedVariant(t *testing.T) {
	_, err := NewStore(context.Background(), common.TemplateConfig{Store: "consul"}, common.RedisConfig{}, nil)
	require.ErrorIs(t, err, common.ErrUnsupportedVariant)
}
