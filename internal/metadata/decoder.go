// Package metadata decodes and encodes Token Metadata program accounts and
// derives their program addresses.
//
// Account layout (MetadataV1):
//   - key: u8 (4 for MetadataV1)
//   - updateAuthority: Pubkey (32 bytes)
//   - mint: Pubkey (32 bytes)
//   - data.name: String (u32 length + bytes, null padded to 32)
//   - data.symbol: String (u32 length + bytes, null padded to 10)
//   - data.uri: String (u32 length + bytes, null padded to 200)
//   - data.sellerFeeBasisPoints: u16
//   - data.creators: Option<Vec<Creator>> (Creator = 32 + 1 + 1 bytes)
//   - primarySaleHappened: u8
//   - isMutable: u8
//
// Trailing bytes (edition nonce, token standard, collection, uses) are ignored.
package metadata

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"

	"solana-nft-lab/internal/domain"
)

// Fixed widths of the padded string fields.
const (
	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxURILength    = 200
	MaxCreators     = 5

	// MintOffset is where the mint key starts inside the account data.
	MintOffset = 1 + 32

	creatorSize = 32 + 1 + 1

	// maxStringLength bounds declared string lengths so a corrupt prefix
	// cannot claim most of the buffer.
	maxStringLength = 1024
)

// ErrDecode matches every DecodeError.
var ErrDecode = errors.New("metadata decode failed")

// DecodeError reports a buffer that does not match the metadata schema.
type DecodeError struct {
	Field  string
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode metadata %s at offset %d: %s", e.Field, e.Offset, e.Reason)
}

// Is makes errors.Is(err, ErrDecode) true for every DecodeError.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

type reader struct {
	buf []byte
	off int
}

func (r *reader) take(field string, n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.buf) {
		return nil, &DecodeError{Field: field, Offset: r.off, Reason: fmt.Sprintf("need %d bytes, have %d", n, len(r.buf)-r.off)}
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) u8(field string) (uint8, error) {
	b, err := r.take(field, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16(field string) (uint16, error) {
	b, err := r.take(field, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) u32(field string) (uint32, error) {
	b, err := r.take(field, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) pubkey(field string) (string, error) {
	b, err := r.take(field, 32)
	if err != nil {
		return "", err
	}
	return base58.Encode(b), nil
}

func (r *reader) bool(field string) (bool, error) {
	v, err := r.u8(field)
	if err != nil {
		return false, err
	}
	if v > 1 {
		return false, &DecodeError{Field: field, Offset: r.off - 1, Reason: fmt.Sprintf("invalid bool %d", v)}
	}
	return v == 1, nil
}

func (r *reader) flag(field string) (domain.Flag, error) {
	v, err := r.bool(field)
	return domain.Flag(v), err
}

// str reads a length-prefixed string and trims it at the first null byte.
func (r *reader) str(field string) (string, error) {
	start := r.off
	n, err := r.u32(field)
	if err != nil {
		return "", err
	}
	if n > maxStringLength {
		return "", &DecodeError{Field: field, Offset: start, Reason: fmt.Sprintf("declared length %d too large", n)}
	}
	b, err := r.take(field, int(n))
	if err != nil {
		return "", err
	}
	return TrimNull(string(b)), nil
}

// TrimNull cuts s at its first null byte.
func TrimNull(s string) string {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return s[:i]
	}
	return s
}

// Decode parses a raw Token Metadata account buffer.
func Decode(buf []byte) (*domain.OnChainMetadata, error) {
	r := &reader{buf: buf}

	key, err := r.u8("key")
	if err != nil {
		return nil, err
	}
	if domain.MetadataKey(key) != domain.MetadataKeyMetadataV1 {
		return nil, &DecodeError{Field: "key", Offset: 0, Reason: fmt.Sprintf("unexpected tag %d", key)}
	}

	meta := &domain.OnChainMetadata{Key: domain.MetadataKey(key)}

	if meta.UpdateAuthority, err = r.pubkey("updateAuthority"); err != nil {
		return nil, err
	}
	if meta.Mint, err = r.pubkey("mint"); err != nil {
		return nil, err
	}
	if meta.Data.Name, err = r.str("name"); err != nil {
		return nil, err
	}
	if meta.Data.Symbol, err = r.str("symbol"); err != nil {
		return nil, err
	}
	if meta.Data.URI, err = r.str("uri"); err != nil {
		return nil, err
	}
	if meta.Data.SellerFeeBasisPoints, err = r.u16("sellerFeeBasisPoints"); err != nil {
		return nil, err
	}

	hasCreators, err := r.bool("creators")
	if err != nil {
		return nil, err
	}
	if hasCreators {
		countOff := r.off
		count, err := r.u32("creators")
		if err != nil {
			return nil, err
		}
		if count > MaxCreators {
			return nil, &DecodeError{Field: "creators", Offset: countOff, Reason: fmt.Sprintf("declared count %d too large", count)}
		}
		meta.Data.Creators = make([]domain.Creator, 0, count)
		for i := uint32(0); i < count; i++ {
			field := fmt.Sprintf("creators[%d]", i)
			if r.off+creatorSize > len(r.buf) {
				return nil, &DecodeError{Field: field, Offset: r.off, Reason: "truncated creator"}
			}
			addr, _ := r.pubkey(field)
			verified, err := r.flag(field + ".verified")
			if err != nil {
				return nil, err
			}
			share, _ := r.u8(field + ".share")
			meta.Data.Creators = append(meta.Data.Creators, domain.Creator{
				Address:  addr,
				Verified: verified,
				Share:    share,
			})
		}
	}

	if meta.PrimarySaleHappened, err = r.flag("primarySaleHappened"); err != nil {
		return nil, err
	}
	if meta.IsMutable, err = r.flag("isMutable"); err != nil {
		return nil, err
	}

	return meta, nil
}

// DecodeBase64 decodes base64 account data as returned by the RPC.
func DecodeBase64(data string) (*domain.OnChainMetadata, error) {
	buf, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, &DecodeError{Field: "data", Offset: 0, Reason: "invalid base64: " + err.Error()}
	}
	return Decode(buf)
}
