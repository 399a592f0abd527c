package stub

import (
	"bytes"
	"context"
	"encoding/base64"
	"sync"

	"github.com/mr-tron/base58"

	"solana-nft-lab/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
// Program accounts are filtered with real memcmp semantics against their
// base64 data. Missing transactions return nil like a node would.
type RPCClient struct {
	mu sync.Mutex

	TokenAccounts   map[string][]solana.TokenAccount   // by owner
	ProgramAccounts map[string][]solana.ProgramAccount // by program id
	Accounts        map[string]*solana.AccountInfo
	Signatures      map[string][]solana.SignatureInfo
	Transactions    map[string]*solana.ParsedTransaction

	// Errors fails every call of method, or of method:key when keyed.
	Errors map[string]error
	// Transient fails the next N calls of method or method:key with TransientErr.
	Transient    map[string]int
	TransientErr error

	calls map[string]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		TokenAccounts:   make(map[string][]solana.TokenAccount),
		ProgramAccounts: make(map[string][]solana.ProgramAccount),
		Accounts:        make(map[string]*solana.AccountInfo),
		Signatures:      make(map[string][]solana.SignatureInfo),
		Transactions:    make(map[string]*solana.ParsedTransaction),
		Errors:          make(map[string]error),
		Transient:       make(map[string]int),
		TransientErr:    &solana.TransportError{Method: "stub", Attempts: 1, Err: context.DeadlineExceeded},
		calls:           make(map[string]int),
	}
}

// Calls returns how many times method was invoked.
func (c *RPCClient) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// TotalCalls returns the number of calls across all methods.
func (c *RPCClient) TotalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.calls {
		total += n
	}
	return total
}

// begin records a call and returns an injected error, if any.
func (c *RPCClient) begin(method, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[method]++

	keyed := method + ":" + key
	if err, ok := c.Errors[keyed]; ok {
		return err
	}
	if err, ok := c.Errors[method]; ok {
		return err
	}
	for _, k := range []string{keyed, method} {
		if n := c.Transient[k]; n > 0 {
			c.Transient[k] = n - 1
			return c.TransientErr
		}
	}
	return nil
}

// GetTokenAccountsByOwner returns the stored accounts of owner.
func (c *RPCClient) GetTokenAccountsByOwner(_ context.Context, owner, _ string) ([]solana.TokenAccount, error) {
	if err := c.begin("getTokenAccountsByOwner", owner); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]solana.TokenAccount(nil), c.TokenAccounts[owner]...), nil
}

// GetProgramAccounts returns stored accounts of programID whose data matches every filter.
func (c *RPCClient) GetProgramAccounts(_ context.Context, programID string, filters []solana.MemcmpFilter) ([]solana.ProgramAccount, error) {
	key := programID
	if len(filters) > 0 {
		key = filters[0].Bytes
	}
	if err := c.begin("getProgramAccounts", key); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var out []solana.ProgramAccount
	for _, acc := range c.ProgramAccounts[programID] {
		if matches(acc.Account.Data, filters) {
			out = append(out, acc)
		}
	}
	return out, nil
}

func matches(data string, filters []solana.MemcmpFilter) bool {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return false
	}
	for _, f := range filters {
		want, err := base58.Decode(f.Bytes)
		if err != nil {
			return false
		}
		end := f.Offset + len(want)
		if f.Offset < 0 || end > len(raw) || !bytes.Equal(raw[f.Offset:end], want) {
			return false
		}
	}
	return true
}

// GetAccountInfo returns the stored account or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	if err := c.begin("getAccountInfo", pubkey); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Accounts[pubkey], nil
}

// GetSignaturesForAddress retrieves signatures for an address from the stub store.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	if err := c.begin("getSignaturesForAddress", address); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sigs, ok := c.Signatures[address]
	if !ok {
		return nil, nil
	}

	// Apply limit if specified
	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		return append([]solana.SignatureInfo(nil), sigs[:opts.Limit]...), nil
	}

	return append([]solana.SignatureInfo(nil), sigs...), nil
}

// GetParsedTransaction returns the stored transaction, or nil when unknown.
func (c *RPCClient) GetParsedTransaction(_ context.Context, signature string, _ solana.Commitment) (*solana.ParsedTransaction, error) {
	if err := c.begin("getTransaction", signature); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Transactions[signature], nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.ParsedTransaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transactions[tx.Signature] = tx
}

// AddSignatures adds signatures for an address to the stub store.
func (c *RPCClient) AddSignatures(address string, sigs []solana.SignatureInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Signatures[address] = sigs
}

// AddProgramAccount adds a base64 encoded account under programID.
func (c *RPCClient) AddProgramAccount(programID, pubkey string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ProgramAccounts[programID] = append(c.ProgramAccounts[programID], solana.ProgramAccount{
		Pubkey: pubkey,
		Account: solana.AccountInfo{
			Owner: programID,
			Data:  base64.StdEncoding.EncodeToString(data),
		},
	})
}

// AddAccount stores a single account with raw data.
func (c *RPCClient) AddAccount(pubkey, owner string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[pubkey] = &solana.AccountInfo{
		Owner: owner,
		Data:  base64.StdEncoding.EncodeToString(data),
	}
}

// AddTokenAccount stores a token account under its owner.
func (c *RPCClient) AddTokenAccount(acc solana.TokenAccount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TokenAccounts[acc.Owner] = append(c.TokenAccounts[acc.Owner], acc)
}

var _ solana.RPCClient = (*RPCClient)(nil)
