package flagx

import (
	"os"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "short flag with separate value",
			args:    []string{"-c", "conf.json", "-e", "https://example.com"},
			allowed: []string{"-c", "--config"},
			want:    []string{"-c", "conf.json"},
		},
		{
			name:    "long flag with equals",
			args:    []string{"--config=alt.json", "-e", "x"},
			allowed: []string{"-c", "--config"},
			want:    []string{"--config=alt.json"},
		},
		{
			name:    "unknown flags dropped",
			args:    []string{"-x", "1", "--y=2", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "flag at end keeps no value",
			args:    []string{"-c"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "next dash token is not a value",
			args:    []string{"-c", "-e"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "multiple allowed flags keep order",
			args:    []string{"-e", "https://example.com", "-c", "conf.json"},
			allowed: []string{"-c", "-e"},
			want:    []string{"-e", "https://example.com", "-c", "conf.json"},
		},
		{
			name:    "empty args",
			args:    []string{},
			allowed: []string{"-c"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowed)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("FilterArgs() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestJsonConfigFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("short flag", func(t *testing.T) {
		os.Args = []string{"addonsync", "-c", "/tmp/conf.json"}
		assert.Equal(t, "/tmp/conf.json", JsonConfigFlags())
	})

	t.Run("long flag", func(t *testing.T) {
		os.Args = []string{"addonsync", "-config", "/tmp/other.json"}
		assert.Equal(t, "/tmp/other.json", JsonConfigFlags())
	})

	t.Run("absent", func(t *testing.T) {
		os.Args = []string{"addonsync", "-e", "https://example.com"}
		assert.Equal(t, "", JsonConfigFlags())
	})
}
