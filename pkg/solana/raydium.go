package solana

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Program IDs
var (
	RAYDIUM_AMM_V4_PROGRAM = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	// BURN_ADDRESS is the system program address; LP tokens held there are burned
	BURN_ADDRESS = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")
)

// PoolInitMarker is the log fragment emitted by a new AMM v4 pool
const PoolInitMarker = "initialize2"

// Account positions inside the initialize2 instruction
const (
	poolAccountIndex   = 4
	lpMintAccountIndex = 7
	tokenAAccountIndex = 8
	tokenBAccountIndex = 9
)

// ErrInstructionNotFound is returned when no instruction targets the program
var ErrInstructionNotFound = errors.New("no instruction for program in transaction")

// AccountIndexError reports a positional account that is out of range
type AccountIndexError struct {
	Index int
	Len   int
}

func (e *AccountIndexError) Error() string {
	return fmt.Sprintf("account index %d out of range (instruction has %d accounts)", e.Index, e.Len)
}

// PoolAccounts holds the addresses extracted from a pool creation
type PoolAccounts struct {
	PoolAddress   string
	LPMintAddress string
	TokenAMint    string
	TokenBMint    string
}

// Mints returns both token mints of the pool
func (p *PoolAccounts) Mints() []string {
	return []string{p.TokenAMint, p.TokenBMint}
}

// ContainsInitMarker reports whether any log line announces a pool creation
func ContainsInitMarker(logs []string) bool {
	for _, line := range logs {
		if strings.Contains(strings.ToLower(line), PoolInitMarker) {
			return true
		}
	}
	return false
}

// ExtractPoolAccounts reads pool, LP mint and token mints from the first
// instruction of tx that targets programID.
func ExtractPoolAccounts(tx *rpc.GetParsedTransactionResult, programID solana.PublicKey) (*PoolAccounts, error) {
	if tx == nil || tx.Transaction == nil {
		return nil, ErrInstructionNotFound
	}

	var accounts []solana.PublicKey
	found := false
	for _, ix := range tx.Transaction.Message.Instructions {
		if ix != nil && ix.ProgramId.Equals(programID) {
			accounts = ix.Accounts
			found = true
			break
		}
	}
	if !found {
		return nil, ErrInstructionNotFound
	}

	at := func(i int) (string, error) {
		if i >= len(accounts) {
			return "", &AccountIndexError{Index: i, Len: len(accounts)}
		}
		return accounts[i].String(), nil
	}

	var out PoolAccounts
	var err error
	if out.PoolAddress, err = at(poolAccountIndex); err != nil {
		return nil, err
	}
	if out.LPMintAddress, err = at(lpMintAccountIndex); err != nil {
		return nil, err
	}
	if out.TokenAMint, err = at(tokenAAccountIndex); err != nil {
		return nil, err
	}
	if out.TokenBMint, err = at(tokenBAccountIndex); err != nil {
		return nil, err
	}
	return &out, nil
}
