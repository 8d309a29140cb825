package common

import (
	"math/rand/v2"
)

const trxAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateTrxNo returns a human-readable transaction reference, e.g. "TRX7K2Q9ZLM4".
func GenerateTrxNo() string {
	result := make([]byte, 9)
	for i := range result {
		result[i] = trxAlphabet[rand.IntN(len(trxAlphabet))]
	}
	return "TRX" + string(result)
}
