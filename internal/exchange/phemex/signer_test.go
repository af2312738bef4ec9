package phemex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Golden values below are independently computed HMAC-SHA256 digests
// over apiKey‖expiry‖sortedQuery‖body, verifying Sign's exact wire
// format rather than just its shape.
func TestSign_GoldenValueWithQueryAndBody(t *testing.T) {
	sig := Sign("testsecret", "apikey123", "1700000000",
		map[string]string{"symbol": "BTCUSD", "limit": "100"}, `{"foo":"bar"}`)
	assert.Equal(t, "46df210fe16e44ed1c9d2cda2801aa048710053196d9cc3be4ab5c0703f9e3fc", sig)
}

func TestSign_GoldenValueWithNoQueryOrBody(t *testing.T) {
	sig := Sign("sekret", "key", "123", nil, "")
	assert.Equal(t, "bb575a16983147348f8bad854c38290351690852a59cda72b7763bc700368897", sig)
}

func TestSign_QueryKeyOrderDoesNotAffectSignature(t *testing.T) {
	a := Sign("testsecret", "apikey123", "1700000000",
		map[string]string{"symbol": "BTCUSD", "limit": "100"}, `{"foo":"bar"}`)
	b := Sign("testsecret", "apikey123", "1700000000",
		map[string]string{"limit": "100", "symbol": "BTCUSD"}, `{"foo":"bar"}`)
	assert.Equal(t, a, b)
}

func TestSign_DifferentSecretsProduceDifferentSignatures(t *testing.T) {
	a := Sign("secretA", "key", "123", nil, "")
	b := Sign("secretB", "key", "123", nil, "")
	assert.NotEqual(t, a, b)
}

func TestSortedQueryString_EmptyMapIsEmptyString(t *testing.T) {
	assert.Equal(t, "", sortedQueryString(nil))
	assert.Equal(t, "", sortedQueryString(map[string]string{}))
}

func TestSortedQueryString_SortsByKey(t *testing.T) {
	got := sortedQueryString(map[string]string{"symbol": "BTCUSD", "limit": "100"})
	assert.Equal(t, "limit100symbolBTCUSD", got)
}
