package store

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNetscapeLine(t *testing.T) {
	t.Run("session cookie", func(t *testing.T) {
		c, err := ParseNetscapeLine("example.com\tFALSE\t/\tFALSE\t0\ttest_cookie\tvalue123")
		require.NoError(t, err)
		assert.Equal(t, "example.com", c.Domain)
		assert.False(t, c.IncludeSubdomains)
		assert.Equal(t, "/", c.Path)
		assert.False(t, c.Secure)
		assert.True(t, c.Expires.IsZero())
		assert.Equal(t, "test_cookie", c.Name)
		assert.Equal(t, "value123", c.Value)
	})

	t.Run("domain cookie with expiry", func(t *testing.T) {
		c, err := ParseNetscapeLine(".example.com\tTRUE\t/api\tTRUE\t2145916800\tid\tabc")
		require.NoError(t, err)
		assert.Equal(t, "example.com", c.Domain, "leading dot is canonicalized away")
		assert.True(t, c.IncludeSubdomains)
		assert.True(t, c.Secure)
		assert.Equal(t, time.Unix(2145916800, 0), c.Expires)
	})

	t.Run("httponly prefix", func(t *testing.T) {
		c, err := ParseNetscapeLine("#HttpOnly_example.com\tFALSE\t/\tFALSE\t0\tsid\tx")
		require.NoError(t, err)
		assert.True(t, c.HttpOnly)
		assert.Equal(t, "example.com", c.Domain)
	})

	t.Run("errors", func(t *testing.T) {
		bad := []string{
			"too\tfew\tfields",
			"example.com\tYES\t/\tFALSE\t0\tn\tv",
			"example.com\tFALSE\t/\tmaybe\t0\tn\tv",
			"example.com\tFALSE\t/\tFALSE\tsoon\tn\tv",
			"example.com\tFALSE\t/\tFALSE\t0\t\tv",
		}
		for _, line := range bad {
			_, err := ParseNetscapeLine(line)
			assert.Error(t, err, "line %q", line)
		}
	})
}

func TestFormatNetscapeLine(t *testing.T) {
	c := Cookie{
		Domain:            "example.com",
		IncludeSubdomains: true,
		Path:              "/",
		Secure:            true,
		HttpOnly:          true,
		Expires:           time.Unix(2145916800, 0),
		Name:              "sid",
		Value:             "abc",
	}
	line := FormatNetscapeLine(c)
	assert.Equal(t, "#HttpOnly_.example.com\tTRUE\t/\tTRUE\t2145916800\tsid\tabc", line)

	// Round trip preserves every field.
	back, err := ParseNetscapeLine(line)
	require.NoError(t, err)
	assert.Equal(t, c, back)
}

func TestReadWriteNetscape(t *testing.T) {
	input := strings.Join([]string{
		"# Netscape HTTP Cookie File",
		"# This file was generated. Do not edit.",
		"",
		"example.com\tFALSE\t/\tFALSE\t0\ttest_cookie\tvalue123",
		".example.com\tTRUE\t/\tFALSE\t0\tshared\tyes",
	}, "\n")

	cookies, err := ReadNetscape(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, cookies, 2)

	var out bytes.Buffer
	require.NoError(t, WriteNetscape(&out, cookies))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "# Netscape"))
	assert.Equal(t, "example.com\tFALSE\t/\tFALSE\t0\ttest_cookie\tvalue123", lines[1])
	assert.Equal(t, ".example.com\tTRUE\t/\tFALSE\t0\tshared\tyes", lines[2])
}

func TestReadNetscapeReportsLine(t *testing.T) {
	input := "example.com\tFALSE\t/\tFALSE\t0\tok\tfine\ngarbage"
	_, err := ReadNetscape(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}
