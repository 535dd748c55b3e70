package codec_test

import (
	"testing"

	"pkg.world.dev/world-engine/assert"

	"github.com/leafley/rovio-match-making/codec"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestEncodeDecode(t *testing.T) {
	data, err := codec.Encode(payload{Name: "alpha", Count: 3})
	assert.NilError(t, err)

	got, err := codec.Decode[payload](data)
	assert.NilError(t, err)
	assert.Equal(t, "alpha", got.Name)
	assert.Equal(t, 3, got.Count)
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	_, err := codec.Decode[payload]([]byte(`{"name":`))
	assert.IsError(t, err)
}
