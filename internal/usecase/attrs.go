package usecase

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"flightsurety-service/internal/domain/entity"
)

// attrReader decodes event attributes, keeping the first failure.
type attrReader struct {
	ev  entity.Event
	err error
}

func readAttrs(ev entity.Event) *attrReader {
	return &attrReader{ev: ev}
}

func (r *attrReader) fail(key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("event %s (%s): attribute %q: %w", r.ev.ID, r.ev.Type, key, err)
	}
}

func (r *attrReader) str(key string) string {
	v, ok := r.ev.Attributes[key]
	if !ok {
		r.fail(key, errors.New("missing"))
	}
	return v
}

func (r *attrReader) account(key string) entity.Account {
	s := r.str(key)
	if r.err != nil {
		return entity.ZeroAccount
	}
	acct, err := entity.ParseAccount(s)
	if err != nil {
		r.fail(key, err)
	}
	return acct
}

func (r *attrReader) hash(key string) common.Hash {
	s := r.str(key)
	if r.err != nil {
		return common.Hash{}
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		r.fail(key, err)
		return common.Hash{}
	}
	if len(b) != common.HashLength {
		r.fail(key, fmt.Errorf("want %d bytes, got %d", common.HashLength, len(b)))
		return common.Hash{}
	}
	return common.BytesToHash(b)
}

func (r *attrReader) uint(key string) uint64 {
	s := r.str(key)
	if r.err != nil {
		return 0
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		r.fail(key, err)
	}
	return v
}

func (r *attrReader) index(key string) uint8 {
	v := r.uint(key)
	if r.err == nil && v >= entity.OracleIndexRange {
		r.fail(key, fmt.Errorf("index %d out of range", v))
	}
	return uint8(v)
}

func (r *attrReader) boolean(key string) bool {
	s := r.str(key)
	if r.err != nil {
		return false
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		r.fail(key, err)
	}
	return v
}

func (r *attrReader) money(key string) entity.Money {
	s := r.str(key)
	if r.err != nil {
		return entity.Money{}
	}
	m, err := entity.ParseMoney(s)
	if err != nil {
		r.fail(key, err)
	}
	return m
}

func (r *attrReader) status(key string) entity.StatusCode {
	v := r.uint(key)
	code := entity.StatusCode(v)
	if r.err == nil && (v > 255 || !code.Valid()) {
		r.fail(key, fmt.Errorf("unknown status code %d", v))
	}
	return code
}

func (r *attrReader) indexes(key string) [entity.OracleIndexCount]uint8 {
	var out [entity.OracleIndexCount]uint8
	s := r.str(key)
	if r.err != nil {
		return out
	}
	parts := strings.Split(s, ",")
	if len(parts) != entity.OracleIndexCount {
		r.fail(key, fmt.Errorf("want %d indexes, got %q", entity.OracleIndexCount, s))
		return out
	}
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 8)
		if err != nil || v >= entity.OracleIndexRange {
			r.fail(key, fmt.Errorf("invalid index %q", p))
			return out
		}
		out[i] = uint8(v)
	}
	return out
}

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }

func formatIndexes(idx [entity.OracleIndexCount]uint8) string {
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = strconv.Itoa(int(v))
	}
	return strings.Join(parts, ",")
}
