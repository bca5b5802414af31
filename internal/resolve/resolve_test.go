package resolve

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize_CaseFold(t *testing.T) {
	r := New(nil)

	tests := []struct {
		in   string
		want string
	}{
		{"Denver", "denver"},
		{"  MIAMI ", "miami"},
		{"New   York", "new york"},
		{"Straße", "strasse"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Canonicalize(tt.in))
		})
	}
}

func TestCanonicalize_NFC(t *testing.T) {
	r := New(nil)
	// "é" precomposed vs "e" + combining acute
	assert.Equal(t, "caf\u00e9", r.Canonicalize("Cafe\u0301"))
}

func TestCanonicalize_Alias(t *testing.T) {
	r := New(map[string]string{"Aurora": "Denver"})

	assert.Equal(t, "denver", r.Canonicalize("aurora"))
	assert.Equal(t, "denver", r.Canonicalize("AURORA"))
	assert.Equal(t, "denver", r.Canonicalize("Denver"))
	assert.Equal(t, "phoenix", r.Canonicalize("Phoenix"))
}

func TestCanonicalize_SingleHop(t *testing.T) {
	r := New(map[string]string{
		"a": "b",
		"b": "c",
	})

	assert.Equal(t, "b", r.Canonicalize("a"), "alias targets are not resolved again")
	assert.Equal(t, "c", r.Canonicalize("b"))
}

func TestNew_DropsDegenerateAliases(t *testing.T) {
	r := New(map[string]string{
		"Denver": "denver",
		"":       "x",
		"y":      " ",
	})
	assert.Empty(t, r.Aliases())
}

func TestAliases_ReturnsCopy(t *testing.T) {
	r := New(map[string]string{"Aurora": "Denver"})

	got := r.Aliases()
	got["aurora"] = "mutated"

	assert.Equal(t, "denver", r.Canonicalize("Aurora"))
}

func TestCanonicalize_ConcurrentUse(t *testing.T) {
	r := New(map[string]string{"Aurora": "Denver"})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "denver", r.Canonicalize("Aurora"))
		}()
	}
	wg.Wait()
}
