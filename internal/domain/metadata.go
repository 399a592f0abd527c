package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// MetadataKey identifies the account type of a Token Metadata program account.
type MetadataKey uint8

// Token Metadata program account tags.
const (
	MetadataKeyUninitialized   MetadataKey = 0
	MetadataKeyEditionV1       MetadataKey = 1
	MetadataKeyMasterEditionV1 MetadataKey = 2
	MetadataKeyMetadataV1      MetadataKey = 4
	MetadataKeyMasterEditionV2 MetadataKey = 6
	MetadataKeyEditionMarker   MetadataKey = 7
)

// Flag is a one-byte boolean account field. It is written as a JSON bool
// and read from either a bool or the 0/1 number older dumps contain.
type Flag bool

// UnmarshalJSON accepts true/false, numbers (non-zero is true), their quoted
// forms and null, which leaves the flag unchanged.
func (f *Flag) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	switch s {
	case "null":
		return nil
	case "true":
		*f = true
		return nil
	case "false", "":
		*f = false
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("flag: cannot decode %s", data)
	}
	*f = n != 0
	return nil
}

// Creator is one entry of the on-chain creators list.
// Shares are not validated to sum to 100.
type Creator struct {
	Address  string `json:"address"`
	Verified Flag   `json:"verified"`
	Share    uint8  `json:"share"`
}

// MetadataData is the Data sub-record of a metadata account.
type MetadataData struct {
	Name                 string    `json:"name"`
	Symbol               string    `json:"symbol"`
	URI                  string    `json:"uri"`
	SellerFeeBasisPoints uint16    `json:"sellerFeeBasisPoints"`
	Creators             []Creator `json:"creators"`
}

// OnChainMetadata is a decoded Token Metadata account.
// Values are immutable once decoded.
type OnChainMetadata struct {
	Key                 MetadataKey  `json:"key"`
	UpdateAuthority     string       `json:"updateAuthority"`
	Mint                string       `json:"mint"`
	Data                MetadataData `json:"data"`
	PrimarySaleHappened Flag         `json:"primarySaleHappened"`
	IsMutable           Flag         `json:"isMutable"`
}

// URI returns the off-chain metadata URI, or "" for a nil or empty record.
func (m *OnChainMetadata) URI() string {
	if m == nil {
		return ""
	}
	return m.Data.URI
}

// Collection is the optional grouping block of an off-chain metadata document.
type Collection struct {
	Name   string `json:"name,omitempty"`
	Family string `json:"family,omitempty"`
}

// Attribute is a single trait of an off-chain metadata document.
type Attribute struct {
	TraitType string `json:"trait_type,omitempty"`
	Value     any    `json:"value"`
}

// OffChainMetadata is the JSON document referenced by the on-chain URI.
// Raw keeps the document exactly as served so nothing is lost when the
// typed fields do not cover it.
type OffChainMetadata struct {
	Name        string          `json:"name,omitempty"`
	Symbol      string          `json:"symbol,omitempty"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	Collection  *Collection     `json:"collection,omitempty"`
	Attributes  []Attribute     `json:"attributes,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

// ParseOffChainMetadata decodes a raw off-chain document. Fields with
// unexpected shapes are skipped; everything else is still populated.
func ParseOffChainMetadata(raw []byte) (*OffChainMetadata, error) {
	var doc OffChainMetadata
	if err := json.Unmarshal(raw, &doc); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return nil, err
		}
	}
	doc.Raw = append(json.RawMessage(nil), raw...)
	return &doc, nil
}
