package dashboard

import (
	"cmp"
	"slices"
	"strings"
)

// Sortable columns of the users table
const (
	SortByName      = "full_name"
	SortByPhone     = "phone"
	SortByCreatedAt = "created_at"
	SortByStatus    = "status"
	SortByRole      = "role"
)

// ParseSortDirection defaults to descending
func ParseSortDirection(s string) SortDirection {
	if strings.EqualFold(strings.TrimSpace(s), string(SortAsc)) {
		return SortAsc
	}
	return SortDesc
}

// SortUsers orders users in place by one of the sortable columns. Unknown
// columns leave the slice untouched. Empty names and phones sort last in
// both directions.
func SortUsers(users []*UserRecord, sortBy string, dir SortDirection) {
	var compare func(a, b *UserRecord) int

	switch sortBy {
	case SortByName:
		compare = textColumn(func(u *UserRecord) string { return u.Name() }, dir)
	case SortByPhone:
		compare = textColumn(func(u *UserRecord) string { return deref(u.Phone) }, dir)
	case SortByCreatedAt:
		compare = directed(func(a, b *UserRecord) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		}, dir)
	case SortByStatus:
		compare = directed(func(a, b *UserRecord) int {
			return cmp.Compare(a.DerivedStatus().rank(), b.DerivedStatus().rank())
		}, dir)
	case SortByRole:
		compare = directed(func(a, b *UserRecord) int {
			return cmp.Compare(roleRank(a.Role), roleRank(b.Role))
		}, dir)
	default:
		return
	}

	slices.SortStableFunc(users, compare)
}

func directed(compare func(a, b *UserRecord) int, dir SortDirection) func(a, b *UserRecord) int {
	if dir != SortDesc {
		return compare
	}
	return func(a, b *UserRecord) int {
		return -compare(a, b)
	}
}

func textColumn(value func(*UserRecord) string, dir SortDirection) func(a, b *UserRecord) int {
	return func(a, b *UserRecord) int {
		va := strings.ToLower(strings.TrimSpace(value(a)))
		vb := strings.ToLower(strings.TrimSpace(value(b)))
		switch {
		case va == vb:
			return 0
		case va == "":
			return 1
		case vb == "":
			return -1
		case dir == SortDesc:
			return strings.Compare(vb, va)
		default:
			return strings.Compare(va, vb)
		}
	}
}

// Initials returns up to two upper case initials of a name
func Initials(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "?"
	}
	out := ""
	for _, f := range fields {
		out += strings.ToUpper(string([]rune(f)[0]))
		if len([]rune(out)) == 2 {
			break
		}
	}
	return out
}

// BillingLine formats a billing address on one line
func BillingLine(addr *BillingAddress) string {
	if addr == nil {
		return ""
	}
	parts := make([]string, 0, 5)
	for _, p := range []string{addr.Street, addr.City, addr.State, addr.PostalCode, addr.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
