package metadata

import (
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"

	"solana-nft-lab/internal/domain"
)

// Encode serializes metadata in the account layout, padding strings with
// nulls to their fixed widths. It is the inverse of Decode.
func Encode(meta *domain.OnChainMetadata) ([]byte, error) {
	if meta == nil {
		return nil, fmt.Errorf("encode metadata: nil value")
	}

	buf := make([]byte, 0, 1+32+32+4+MaxNameLength+4+MaxSymbolLength+4+MaxURILength+2+1+4+len(meta.Data.Creators)*creatorSize+2)
	buf = append(buf, byte(domain.MetadataKeyMetadataV1))

	var err error
	if buf, err = appendPubkey(buf, "updateAuthority", meta.UpdateAuthority); err != nil {
		return nil, err
	}
	if buf, err = appendPubkey(buf, "mint", meta.Mint); err != nil {
		return nil, err
	}
	if buf, err = appendPadded(buf, "name", meta.Data.Name, MaxNameLength); err != nil {
		return nil, err
	}
	if buf, err = appendPadded(buf, "symbol", meta.Data.Symbol, MaxSymbolLength); err != nil {
		return nil, err
	}
	if buf, err = appendPadded(buf, "uri", meta.Data.URI, MaxURILength); err != nil {
		return nil, err
	}
	buf = binary.LittleEndian.AppendUint16(buf, meta.Data.SellerFeeBasisPoints)

	if meta.Data.Creators == nil {
		buf = append(buf, 0)
	} else {
		if len(meta.Data.Creators) > MaxCreators {
			return nil, fmt.Errorf("encode metadata creators: %d exceeds %d", len(meta.Data.Creators), MaxCreators)
		}
		buf = append(buf, 1)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(meta.Data.Creators)))
		for i, c := range meta.Data.Creators {
			if buf, err = appendPubkey(buf, fmt.Sprintf("creators[%d]", i), c.Address); err != nil {
				return nil, err
			}
			buf = append(buf, boolByte(bool(c.Verified)), c.Share)
		}
	}

	buf = append(buf, boolByte(bool(meta.PrimarySaleHappened)), boolByte(bool(meta.IsMutable)))
	return buf, nil
}

func appendPubkey(buf []byte, field, key string) ([]byte, error) {
	b, err := base58.Decode(key)
	if err != nil || len(b) != 32 {
		return nil, fmt.Errorf("encode metadata %s: invalid public key %q", field, key)
	}
	return append(buf, b...), nil
}

func appendPadded(buf []byte, field, s string, width int) ([]byte, error) {
	if len(s) > width {
		return nil, fmt.Errorf("encode metadata %s: length %d exceeds %d", field, len(s), width)
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(width))
	buf = append(buf, s...)
	for i := len(s); i < width; i++ {
		buf = append(buf, 0)
	}
	return buf, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
