package pricing

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
)

const (
	FunctionListing     = "listing"
	FunctionBuyGuardian = "buyGuardian"

	// Payment token identifiers as they appear hex-encoded in call data.
	TokenEGLDHex  = "45474c44"
	TokenLKMEXHex = "4c4b4d45582d616162393130"
)

const (
	fieldMinBid       = 6
	fieldMaxBid       = 7
	fieldPaymentToken = 9
)

// buyGuardianPrice is the fixed mint price of a buyGuardian call: 20 native tokens.
var buyGuardianPrice = new(big.Int).Mul(big.NewInt(20), new(big.Int).Exp(big.NewInt(10), big.NewInt(priceDecimals), nil))

// DecodeListingPrice reads the smallest-unit price from a marketplace call.
// data is the base64 call payload with '@'-separated hex arguments.
func DecodeListingPrice(function, data string) (*big.Int, error) {
	switch function {
	case FunctionBuyGuardian:
		return new(big.Int).Set(buyGuardianPrice), nil
	case FunctionListing:
	default:
		return nil, fmt.Errorf("%w: last call is %q", ErrNotListed, function)
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: call data is not base64: %v", ErrUnexpectedShape, err)
	}
	fields := strings.Split(string(raw), "@")
	if len(fields) <= fieldPaymentToken {
		return nil, fmt.Errorf("%w: listing call has %d fields", ErrNotListed, len(fields))
	}

	switch fields[fieldPaymentToken] {
	case TokenEGLDHex:
		if fields[fieldMinBid] != fields[fieldMaxBid] {
			return nil, fmt.Errorf("%w: auction listing", ErrNotListed)
		}
		return parseHex(fields[fieldMinBid])
	case TokenLKMEXHex:
		return parseHex(fields[fieldMinBid])
	default:
		return nil, fmt.Errorf("%w: payment token %q", ErrNotListed, fields[fieldPaymentToken])
	}
}

func parseHex(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty price argument", ErrUnexpectedShape)
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: price argument %q is not hex", ErrUnexpectedShape, s)
	}
	return v, nil
}
