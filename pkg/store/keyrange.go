package store

import "github.com/eigerco/bramble/pkg/db"

// KeyRange bounds a List in the key type's natural order. A nil bound
// leaves that side open. From is inclusive unless FromOpen is set; To is
// exclusive unless ToClosed is set.
type KeyRange[K any] struct {
	From     *K
	To       *K
	FromOpen bool
	ToClosed bool
}

// Full covers the whole collection.
func Full[K any]() KeyRange[K] { return KeyRange[K]{} }

// From covers keys >= from.
func From[K any](from K) KeyRange[K] { return KeyRange[K]{From: &from} }

// After covers keys > from.
func After[K any](from K) KeyRange[K] { return KeyRange[K]{From: &from, FromOpen: true} }

// Until covers keys < to.
func Until[K any](to K) KeyRange[K] { return KeyRange[K]{To: &to} }

// Through covers keys <= to.
func Through[K any](to K) KeyRange[K] { return KeyRange[K]{To: &to, ToClosed: true} }

// Between covers from <= keys < to.
func Between[K any](from, to K) KeyRange[K] { return KeyRange[K]{From: &from, To: &to} }

// bounds translates the typed range into raw iteration bounds. Appending
// 0x00 to an encoded bound yields its byte-order successor, which turns an
// open lower bound or a closed upper bound into the half-open form the
// backends iterate over.
func (r KeyRange[K]) bounds() (db.Range, error) {
	var out db.Range
	if r.From != nil {
		b, err := encodeKey(*r.From)
		if err != nil {
			return db.Range{}, err
		}
		if r.FromOpen {
			b = append(b, 0x00)
		}
		out.Start = b
	}
	if r.To != nil {
		b, err := encodeKey(*r.To)
		if err != nil {
			return db.Range{}, err
		}
		if r.ToClosed {
			b = append(b, 0x00)
		}
		out.End = b
	}
	return out, nil
}
