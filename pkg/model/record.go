package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Text is a provider field value. The upstream API is loose about JSON types, so
// Text accepts any JSON value: strings and numbers keep their textual form,
// everything else decodes as empty.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = ""
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*t = Text(n.String())
		return nil
	default:
		// Booleans, objects, and arrays carry no reading; the field reads as absent.
		*t = ""
		return nil
	}
}

// String returns the value with surrounding whitespace removed.
func (t Text) String() string {
	return strings.TrimSpace(string(t))
}

// Empty reports whether the field was absent, null, or blank.
func (t Text) Empty() bool {
	return t.String() == ""
}

// UsageRecord is one entry of the usage endpoint's data array. SourceType and
// SpecialType together identify the category (voice, SMS, data).
type UsageRecord struct {
	SourceType  Text `json:"SOURCE_TYPE"`
	SpecialType Text `json:"SPECIAL_TYPE"`
	UsedValue   Text `json:"X_USED_VALUE"`
	Upper       Text `json:"ADDUP_UPPER"`
	ExceedValue Text `json:"X_EXCEED_VALUE"`
	CanUseValue Text `json:"X_CANUSE_VALUE"`
	UsedRatio   Text `json:"USED_RATIO"`
}

// Matches reports whether the record carries the given discriminator pair.
func (r UsageRecord) Matches(sourceType, specialType string) bool {
	return r.SourceType.String() == sourceType && r.SpecialType.String() == specialType
}

// BalanceRecord is the first element of the balance endpoint's data array.
type BalanceRecord struct {
	CanUseFee      Text `json:"CANUSE_FEE_CUST"`
	CurrentBalance Text `json:"CURNT_BALANCE_CUST"`
	FeeAvailable   Text `json:"FEE_AVAILABLE"`
	TotalOwed      Text `json:"ALLBOWE_FEE_CUST"`
	RealtimeFee    Text `json:"REAL_FEE_CUST_NEW"`
	CreditValue    Text `json:"CREDIT_VALUE"`
	GrantAvailable Text `json:"CAN_USER_VALUE"`
}
