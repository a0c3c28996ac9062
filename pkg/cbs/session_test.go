package cbs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	for name, opt := range map[string]func(t *testing.T) Option{
		"memory": func(*testing.T) Option { return WithMemoryStore() },
		"sqlite": func(t *testing.T) Option { return WithSQLiteStore(filepath.Join(t.TempDir(), "s.db")) },
	} {
		t.Run(name, func(t *testing.T) {
			r, err := New(opt(t))
			require.NoError(t, err)
			defer r.Close()

			id, err := r.NewSession()
			require.NoError(t, err)
			require.NotEmpty(t, id)

			require.NoError(t, r.store.PutGlobalVars(map[string]string{"mode": "dark"}))
			turns := []string{
				"{{setvar::hp::10}}start",
				"{{addvar::hp::-3}}hit for 3",
				"{{getvar::hp}} left in {{getglobalvar::mode}}",
			}
			var versions []int
			var last *Result
			for _, src := range turns {
				ctx := NewContext()
				require.NoError(t, r.LoadSession(id, ctx))
				last = r.Evaluate(src, ctx)
				v, err := r.SaveSession(id, last)
				require.NoError(t, err)
				versions = append(versions, v)
			}
			assert.Equal(t, []int{1, 2, 3}, versions)
			assert.Equal(t, "7 left in dark", last.Output)

			hist, err := r.History(id, 2)
			require.NoError(t, err)
			require.Len(t, hist, 2)
			assert.Equal(t, 3, hist[0].Version)
			assert.Equal(t, "7 left in dark", hist[0].Output)
			assert.Equal(t, "hit for 3", hist[1].Output)
			assert.Equal(t, "7", hist[1].ChatVars["hp"])
			assert.Equal(t, "dark", hist[1].GlobalVars["mode"])

			ids, err := r.Sessions()
			require.NoError(t, err)
			assert.Equal(t, []string{id}, ids)

			require.NoError(t, r.DeleteSession(id))
			ids, err = r.Sessions()
			require.NoError(t, err)
			assert.Empty(t, ids)
			hist, err = r.History(id, 0)
			require.NoError(t, err)
			assert.Empty(t, hist)
		})
	}
}

func TestLoadSessionOverlaysContext(t *testing.T) {
	r := newRuntime(t)
	ctx := NewContext()
	ctx.ChatVars["hp"] = "1"
	res := r.Evaluate("{{setvar::hp::5}}{{setvar::name::Ann}}", ctx)
	_, err := r.SaveSession("s", res)
	require.NoError(t, err)

	fresh := &Context{ChatVars: map[string]string{"hp": "0", "extra": "kept"}}
	require.NoError(t, r.LoadSession("s", fresh))
	assert.Equal(t, map[string]string{"hp": "5", "name": "Ann", "extra": "kept"}, fresh.ChatVars)
	assert.NotNil(t, fresh.GlobalVars)
}

func TestSaveSessionRecordsErrors(t *testing.T) {
	r := newRuntime(t)
	res := r.Evaluate("{{fixnum::1::200}}", nil)
	require.NotEmpty(t, res.Errors)

	_, err := r.SaveSession("s", res)
	require.NoError(t, err)
	hist, err := r.History("s", 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Len(t, hist[0].Errors, len(res.Errors))
}
