package solana

import (
	"errors"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	tokenmetadata "github.com/gagliardetto/metaplex-go/clients/token-metadata"
	"github.com/gagliardetto/solana-go"
)

// MetadataProgramID is the Metaplex token metadata program
var MetadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

var (
	// ErrInvalidMetadata is returned when account data cannot be decoded as Metaplex metadata
	ErrInvalidMetadata = errors.New("invalid metadata account data")
	// ErrNotMetadataAccount is returned when the PDA is owned by another program
	ErrNotMetadataAccount = errors.New("account not owned by the metadata program")
)

// TokenMetadata represents the metadata of a token
type TokenMetadata struct {
	Key             uint8
	UpdateAuthority solana.PublicKey
	Mint            solana.PublicKey
	Name            string
	Symbol          string
	URI             string
}

// MetadataAddress derives the metadata PDA for mint: ["metadata", programID, mint]
func MetadataAddress(mint solana.PublicKey) (solana.PublicKey, error) {
	seeds := [][]byte{
		[]byte("metadata"),
		MetadataProgramID.Bytes(),
		mint.Bytes(),
	}

	addr, _, err := solana.FindProgramAddress(seeds, MetadataProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive metadata address: %w", err)
	}
	return addr, nil
}

// fixed width fields are padded with NUL bytes
func cleanField(s string) string {
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

// DecodeTokenMetadata parses a Metaplex metadata account
func DecodeTokenMetadata(data []byte) (*TokenMetadata, error) {
	if len(data) == 0 {
		return nil, ErrInvalidMetadata
	}

	var onChain tokenmetadata.Metadata
	if err := bin.NewBorshDecoder(data).Decode(&onChain); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}

	return &TokenMetadata{
		Key:             uint8(onChain.Key),
		UpdateAuthority: onChain.UpdateAuthority,
		Mint:            onChain.Mint,
		Name:            cleanField(onChain.Data.Name),
		Symbol:          cleanField(onChain.Data.Symbol),
		URI:             cleanField(onChain.Data.Uri),
	}, nil
}
