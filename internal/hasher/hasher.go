// Package hasher fingerprints quote payloads so that logically identical snapshots
// produce identical digests regardless of map iteration order.
//
// Canonical form, per payload kind:
//
//	<tag>\n
//	<len(key)>:<key>=<field>,<field>,...;   (one entry per key, keys in byte order)
//
// Floats are written with decimal's exact shortest representation (never an exponent),
// integers in base 10. The canonical bytes are digested with BLAKE2b-256.
package hasher

import (
	"encoding/hex"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"

	"skyflip/internal/models"
)

const (
	bazaarTag  = "bazaar/v1"
	auctionTag = "auction/v1"
)

// DigestLen is the length of every digest returned by this package.
const DigestLen = blake2b.Size256 * 2

func HashBazaar(quotes map[string]models.BazaarQuote) (string, error) {
	return hashEntries(bazaarTag, sortedKeys(quotes), func(b *strings.Builder, id string) error {
		q := quotes[id]
		if err := writeFloat(b, id, "buy_price", q.BuyPrice); err != nil {
			return err
		}
		b.WriteByte(',')
		return writeFloat(b, id, "sell_price", q.SellPrice)
	})
}

func HashAuctions(quotes map[string]models.AuctionQuote) (string, error) {
	return hashEntries(auctionTag, sortedKeys(quotes), func(b *strings.Builder, id string) error {
		q := quotes[id]
		b.WriteString(strconv.FormatInt(q.LowestStartingBid, 10))
		b.WriteByte(',')
		if err := writeFloat(b, id, "average_observed_price", q.AverageObservedPrice); err != nil {
			return err
		}
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(q.SampleSize))
		return nil
	})
}

func hashEntries(tag string, keys []string, render func(*strings.Builder, string) error) (string, error) {
	var b strings.Builder
	b.WriteString(tag)
	b.WriteByte('\n')
	for _, key := range keys {
		writeKey(&b, key)
		if err := render(&b, key); err != nil {
			return "", err
		}
		b.WriteByte(';')
	}
	sum := blake2b.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:]), nil
}

func writeKey(b *strings.Builder, key string) {
	b.WriteString(strconv.Itoa(len(key)))
	b.WriteByte(':')
	b.WriteString(key)
	b.WriteByte('=')
}

func writeFloat(b *strings.Builder, id, field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &models.EncodingError{ItemID: id, Field: field, Value: v}
	}
	b.WriteString(decimal.NewFromFloat(v).String())
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
