package types

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrBadDirection = errors.New("sort direction must be asc or desc")
	ErrBadPage      = errors.New("invalid page request")
)

type ColType int

const (
	ColUnknown ColType = iota
	ColText
	ColNumeric
	ColBool
	ColTime
	ColUUID
	ColJSON
)

type Op int

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpContains
)

var opSymbols = [...]string{
	OpEq:       "=",
	OpNe:       "<>",
	OpLt:       "<",
	OpLe:       "<=",
	OpGt:       ">",
	OpGe:       ">=",
	OpContains: "like",
}

// Symbol is the SQL comparison token for ordering operators and "like" for OpContains.
func (o Op) Symbol() string {
	if o < 0 || int(o) >= len(opSymbols) {
		return "?"
	}
	return opSymbols[o]
}

func (o Op) String() string {
	switch o {
	case OpEq:
		return "EQ"
	case OpNe:
		return "NE"
	case OpLt:
		return "LT"
	case OpLe:
		return "LE"
	case OpGt:
		return "GT"
	case OpGe:
		return "GE"
	case OpContains:
		return "CONTAINS"
	default:
		return "UNKNOWN"
	}
}

type SortDir int

const (
	Asc SortDir = iota
	Desc
)

func (d SortDir) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// ParseSortDir accepts asc/desc in any case, as sent by the table widget.
func ParseSortDir(s string) (SortDir, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "":
		return Asc, nil
	case "desc":
		return Desc, nil
	default:
		return Asc, errors.Wrapf(ErrBadDirection, "got %q", s)
	}
}

// FilterClause is one parsed predicate. Value is a string or a number, never null.
type FilterClause struct {
	Column string
	Op     Op
	Value  Value
}

type SortKey struct {
	Column string
	Dir    SortDir
}

// SortSpec is ordered: the first key is the primary sort key.
type SortSpec []SortKey

// ParseSortSpec reads "col:dir,col2:dir" (dir optional, defaults to asc).
func ParseSortSpec(s string) (SortSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out SortSpec
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		col, dir, _ := strings.Cut(part, ":")
		d, err := ParseSortDir(dir)
		if err != nil {
			return nil, err
		}
		out = append(out, SortKey{Column: strings.TrimSpace(col), Dir: d})
	}
	return out, nil
}

type PageRequest struct {
	PageIndex int
	PageSize  int
}

func (p PageRequest) Validate() error {
	if p.PageIndex < 0 {
		return errors.Wrapf(ErrBadPage, "page index %d is negative", p.PageIndex)
	}
	if p.PageSize < 1 {
		return errors.Wrapf(ErrBadPage, "page size %d must be positive", p.PageSize)
	}
	if p.PageIndex > math.MaxInt64/p.PageSize {
		return errors.Wrapf(ErrBadPage, "page %d of size %d is out of range", p.PageIndex, p.PageSize)
	}
	return nil
}

func (p PageRequest) Offset() uint64 { return uint64(p.PageIndex) * uint64(p.PageSize) }
func (p PageRequest) Limit() uint64  { return uint64(p.PageSize) }

type QuerySpec struct {
	Filters []FilterClause
	Sort    SortSpec
	Page    PageRequest
}
