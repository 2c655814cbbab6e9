package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTxidRoundtrip(t *testing.T) {
	hex := "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20"
	txid, err := ParseTxid(hex)
	require.NoError(t, err)
	assert.Equal(t, hex, txid.String())
	assert.False(t, txid.IsZero())
}

func TestParseTxidRejectsWrongLength(t *testing.T) {
	_, err := ParseTxid("abcd")
	assert.Error(t, err)
}

func TestParseTxidRejectsNonHex(t *testing.T) {
	_, err := ParseTxid("zz02030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20")
	assert.Error(t, err)
}

func TestParseLocationOutputAndDerivative(t *testing.T) {
	txidHex := "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20"

	loc, err := ParseLocation(txidHex + "_o3")
	require.NoError(t, err)
	assert.Equal(t, OutputLocation, loc.Kind)
	assert.Equal(t, uint32(3), loc.Index)
	assert.Equal(t, txidHex+"_o3", loc.String())

	loc, err = ParseLocation(txidHex + "_d7")
	require.NoError(t, err)
	assert.Equal(t, DerivativeLocation, loc.Kind)
	assert.Equal(t, uint32(7), loc.Index)
	assert.Equal(t, txidHex+"_d7", loc.String())
}

func TestParseLocationRejectsMalformed(t *testing.T) {
	_, err := ParseLocation("not-a-location")
	assert.Error(t, err)
}

func TestTxidPrefixMatchesLocationGrammar(t *testing.T) {
	txid := MustParseTxid("0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20")
	assert.Equal(t, txid.String()+"%", TxidPrefix(txid))
}
