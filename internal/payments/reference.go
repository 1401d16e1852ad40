package payments

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/speps/go-hashids/v2"
)

// ReferenceGenerator issues the short codes customers quote for manual payments.
type ReferenceGenerator struct {
	h      *hashids.HashID
	prefix string
	now    func() time.Time
}

func NewReferenceGenerator(salt, prefix string) (*ReferenceGenerator, error) {
	hd := hashids.NewData()
	hd.Salt = salt
	hd.MinLength = 8
	hd.Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, fmt.Errorf("reference generator: %w", err)
	}
	return &ReferenceGenerator{h: h, prefix: prefix, now: time.Now}, nil
}

// Next returns a fresh reference such as "BT-7KQ2M9XA".
func (g *ReferenceGenerator) Next() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	code, err := g.h.EncodeInt64([]int64{g.now().Unix(), int64(binary.BigEndian.Uint32(b[:]))})
	if err != nil {
		return "", err
	}
	if g.prefix == "" {
		return code, nil
	}
	return strings.ToUpper(g.prefix) + "-" + code, nil
}
