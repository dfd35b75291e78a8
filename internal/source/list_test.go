package source

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseList(t *testing.T) {
	in := `
# upstream lists
https://example.com/reject.yaml

  https://example.org/ads.txt  
#https://disabled.example/list
./local/list.txt
`
	urls, err := ParseList(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://example.com/reject.yaml",
		"https://example.org/ads.txt",
		"./local/list.txt",
	}, urls)
}

func TestSplitLines(t *testing.T) {
	body := []byte("\xef\xbb\xbfpayload:\r\n  - 'a.com'\n\n")
	assert.Equal(t, []string{"payload:", "  - 'a.com'", ""}, SplitLines(body))
	assert.Nil(t, SplitLines(nil))
}

func TestSplitLines_LongLineKeepsFollowingLines(t *testing.T) {
	long := strings.Repeat("x", 2<<20)
	body := []byte("DOMAIN,a.com\n" + long + "\nDOMAIN,b.com\r\nDOMAIN,c.com\n")

	lines := SplitLines(body)
	require.Len(t, lines, 4)
	assert.Equal(t, "DOMAIN,a.com", lines[0])
	assert.Len(t, lines[1], len(long))
	assert.Equal(t, []string{"DOMAIN,b.com", "DOMAIN,c.com"}, lines[2:])
}
