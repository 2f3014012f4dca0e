package solana

import (
	"bytes"
	"testing"

	bin "github.com/gagliardetto/binary"
	tokenmetadata "github.com/gagliardetto/metaplex-go/clients/token-metadata"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func padded(s string, width int) string {
	out := make([]byte, width)
	copy(out, s)
	return string(out)
}

func encodeMetadata(t *testing.T, mint solana.PublicKey, name, symbol, uri string) []byte {
	t.Helper()
	meta := tokenmetadata.Metadata{
		Key:             4,
		UpdateAuthority: solana.NewWallet().PublicKey(),
		Mint:            mint,
		Data: tokenmetadata.Data{
			Name:                 padded(name, 32),
			Symbol:               padded(symbol, 10),
			Uri:                  padded(uri, 200),
			SellerFeeBasisPoints: 500,
		},
		IsMutable: true,
	}

	var buf bytes.Buffer
	require.NoError(t, bin.NewBorshEncoder(&buf).Encode(&meta))
	return buf.Bytes()
}

func TestDecodeTokenMetadata(t *testing.T) {
	mint := solana.NewWallet().PublicKey()

	t.Run("Trims Padding", func(t *testing.T) {
		data := encodeMetadata(t, mint, "Dog Coin ", "DOG", "https://example.com/dog.json")

		meta, err := DecodeTokenMetadata(data)
		require.NoError(t, err)
		assert.Equal(t, uint8(4), meta.Key)
		assert.Equal(t, mint, meta.Mint)
		assert.Equal(t, "Dog Coin", meta.Name)
		assert.Equal(t, "DOG", meta.Symbol)
		assert.Equal(t, "https://example.com/dog.json", meta.URI)
	})

	t.Run("Truncated Data", func(t *testing.T) {
		data := encodeMetadata(t, mint, "Dog Coin", "DOG", "https://example.com/dog.json")

		_, err := DecodeTokenMetadata(data[:50])
		assert.ErrorIs(t, err, ErrInvalidMetadata)

		_, err = DecodeTokenMetadata(data[:80])
		assert.ErrorIs(t, err, ErrInvalidMetadata)

		_, err = DecodeTokenMetadata(nil)
		assert.ErrorIs(t, err, ErrInvalidMetadata)
	})

	t.Run("Oversized Length Prefix", func(t *testing.T) {
		var buf bytes.Buffer
		buf.WriteByte(4)
		buf.Write(make([]byte, 64))
		buf.Write([]byte{0x00, 0x00, 0x00, 0x40})

		_, err := DecodeTokenMetadata(buf.Bytes())
		assert.ErrorIs(t, err, ErrInvalidMetadata)
	})
}

func TestMetadataAddress(t *testing.T) {
	mint := solana.NewWallet().PublicKey()

	addr, err := MetadataAddress(mint)
	require.NoError(t, err)

	again, err := MetadataAddress(mint)
	require.NoError(t, err)
	assert.Equal(t, addr, again)
	assert.NotEqual(t, mint, addr)
}
