// Package symbol implements the symbol model: the Variable entity and the
// name-classification rules the translation visitor leans on for every
// identifier occurrence in a region.
package symbol

import (
	"encoding/binary"
	"fmt"

	"github.com/minio/highwayhash"

	"github.com/viant/ompj/internal/classmap"
	"github.com/viant/ompj/internal/rewriteerr"
)

// Kind classifies how a Variable resolved.
type Kind int

const (
	Local Kind = iota
	Parameter
	Field
)

func (k Kind) tag() string {
	switch k {
	case Local:
		return "L"
	case Parameter:
		return "P"
	case Field:
		return "F"
	default:
		return "?"
	}
}

// Variable is a named storage location captured by a directive. Two
// Variables are equal iff their array-less name and resolved kind match;
// Owner additionally disambiguates Field variables sharing a name across
// classes.
type Variable struct {
	Name         string // as written, including any subscript
	ArrayLess    string // name stripped of any [...] subscript
	Kind         Kind
	Owner        *classmap.Class // non-nil only for Kind == Field
	DeclaredType string
}

// Equal reports whether v and o name the same storage location.
func (v Variable) Equal(o Variable) bool {
	if v.ArrayLess != o.ArrayLess || v.Kind != o.Kind {
		return false
	}
	if v.Kind == Field {
		return v.Owner == o.Owner
	}
	return true
}

var hashKey = []byte("OMPJ0123456789ABCDEF0123456789AB")

// fullNameHashSuffix mixes a class's declaration byte range into a short
// hex suffix via highwayhash, so two distinct classes landing on the same
// arena slot across independent Build calls (e.g. incremental
// re-translation) never collide in FullName. Grounded on
// inspector/graph/hash.go's use of the same hash for stable type
// fingerprints.
func fullNameHashSuffix(cls *classmap.Class) string {
	if cls == nil || cls.Node == nil {
		return ""
	}
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return ""
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(cls.Node.StartByte())<<32|uint64(cls.Node.EndByte()))
	_, _ = h.Write(buf[:])
	return fmt.Sprintf("%x", h.Sum64()&0xffff)
}

// FullName is the deterministic mangling of a Variable into a legal
// identifier unique within one context object: two Variables compare
// equal iff their FullNames are equal, a contract enforced here by
// deriving FullName purely from Kind, owning-class arena index (and, for
// Field, a stable hash suffix), and Name.
func (v Variable) FullName() string {
	classIdx := 0
	suffix := ""
	if v.Kind == Field && v.Owner != nil {
		classIdx = v.Owner.Index
		suffix = "_" + fullNameHashSuffix(v.Owner)
	}
	return fmt.Sprintf("%s_%d_%s%s", v.Kind.tag(), classIdx, v.ArrayLess, suffix)
}

// IsPrivate reports whether v's declared name is in the private/
// first-private attribute set, triggering the [ex.getThreadNum()]
// privatization suffix at the rewrite site.
func (v Variable) IsPrivate(privateVars map[string]bool) bool {
	return privateVars[v.ArrayLess]
}

// Find returns the Variable in set whose array-less name equals name.
func Find(name string, set []Variable) (Variable, error) {
	for _, v := range set {
		if v.ArrayLess == name {
			return v, nil
		}
	}
	return Variable{}, &rewriteerr.NotResolvable{Name: name}
}

// Resolve classifies name against locals, then params, then the
// inheritance chain of owner, in that precedence order.
func Resolve(name string, locals, params []Variable, owner *classmap.Class, classes *classmap.Map) (Variable, error) {
	if v, err := Find(name, locals); err == nil {
		return v, nil
	}
	if v, err := Find(name, params); err == nil {
		return v, nil
	}
	if owner != nil && classes != nil {
		for _, ancestor := range classes.ExtendsChain(owner) {
			for _, f := range ancestor.Fields {
				if f.Name == name {
					return Variable{
						Name:         name,
						ArrayLess:    name,
						Kind:         Field,
						Owner:        ancestor,
						DeclaredType: f.Type,
					}, nil
				}
			}
		}
	}
	return Variable{}, &rewriteerr.NotResolvable{Name: name}
}

// FindField walks owner's inheritance chain looking only for a field:
// used for this.field occurrences, which never resolve to a local or
// parameter.
func FindField(name string, owner *classmap.Class, classes *classmap.Map) (Variable, error) {
	if owner == nil || classes == nil {
		return Variable{}, &rewriteerr.NotResolvable{Name: name}
	}
	for _, ancestor := range classes.ExtendsChain(owner) {
		for _, f := range ancestor.Fields {
			if f.Name == name {
				return Variable{
					Name:         name,
					ArrayLess:    name,
					Kind:         Field,
					Owner:        ancestor,
					DeclaredType: f.Type,
				}, nil
			}
		}
	}
	return Variable{}, &rewriteerr.NotResolvable{Name: name}
}
