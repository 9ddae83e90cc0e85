package utils

import (
	"crypto/rand"
	"math/big"
)

// codeAlphabet omits characters that are easy to misread off a receipt.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeSuffixLength = 8

// GenerateRedemptionCode returns a fresh RED- prefixed code.
func GenerateRedemptionCode() (string, error) {
	suffix := make([]byte, codeSuffixLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		suffix[i] = codeAlphabet[n.Int64()]
	}
	return "RED-" + string(suffix), nil
}

func MustGenerateRedemptionCode() string {
	code, err := GenerateRedemptionCode()
	if err != nil {
		panic("failed to generate redemption code: " + err.Error())
	}
	return code
}
