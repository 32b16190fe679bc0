package cidutil

import (
	"strings"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCIDv1RawSHA256Empty(t *testing.T) {
	assert.Equal(t, "bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku", CIDv1RawSHA256(nil))
}

func TestCIDv1RawSHA256CID(t *testing.T) {
	c, err := CIDv1RawSHA256CID([]byte("[]\n"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c.Version())
	assert.Equal(t, uint64(cid.Raw), c.Type())
	assert.Equal(t, c.String(), CIDv1RawSHA256([]byte("[]\n")))
}

func TestReportCID(t *testing.T) {
	common := []byte(`[{"label":"x"}]`)
	types := []byte(`[{"type":"t_uint256"}]`)

	id := ReportCID(common, types)
	assert.True(t, strings.HasPrefix(id, "bafkrei"))
	assert.Equal(t, id, ReportCID(common, types), "same records yield the same cid")

	assert.NotEqual(t, id, ReportCID(types, common))
	// Moving a byte across the boundary must change the identifier.
	assert.NotEqual(t, ReportCID([]byte("ab"), []byte("c")), ReportCID([]byte("a"), []byte("bc")))
}

func TestVerifyReport(t *testing.T) {
	common := []byte("[]\n")
	types := []byte("[]\n")
	id := ReportCID(common, types)

	ok, err := VerifyReport(id, common, types)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyReport(id, common, []byte("[1]\n"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = VerifyReport("not-a-cid", common, types)
	assert.Error(t, err)
}
