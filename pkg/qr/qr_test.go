package qr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	tok := Encode("cafeteria_main")
	assert.Equal(t, "QLESS_CHECKIN:cafeteria_main", tok)

	fid, err := Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, "cafeteria_main", fid)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, bad := range []string{
		"garbage",
		"",
		"QLESS_CHECKIN:",              // 空 ID
		"qless_checkin:cafeteria",     // 前缀区分大小写
		"https://evil.example/QLESS_CHECKIN:x",
	} {
		_, err := Decode(bad)
		assert.ErrorIs(t, err, ErrInvalidFormat, "input %q", bad)
	}
}

func TestPNG(t *testing.T) {
	png, err := PNG("lab_3", 128)
	require.NoError(t, err)
	assert.NotEmpty(t, png)
	// PNG magic
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
