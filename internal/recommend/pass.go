package recommend

// Pass is one traversal of the feed covering every candidate brand once.
type Pass struct {
	Number int
	Brands []string
}

func newPass(number int, brands []string) Pass {
	return Pass{Number: number, Brands: brands}
}

// Len returns the number of brands in the pass.
func (p Pass) Len() int {
	return len(p.Brands)
}

// At returns the brand at index, or "" when index is out of range.
func (p Pass) At(index int) string {
	if index < 0 || index >= len(p.Brands) {
		return ""
	}
	return p.Brands[index]
}

// Contains reports whether brand belongs to the pass.
func (p Pass) Contains(brand string) bool {
	for _, b := range p.Brands {
		if b == brand {
			return true
		}
	}
	return false
}

// IndexOf returns the position of brand in the pass, or -1.
func (p Pass) IndexOf(brand string) int {
	for i, b := range p.Brands {
		if b == brand {
			return i
		}
	}
	return -1
}

func (p Pass) set() map[string]struct{} {
	out := make(map[string]struct{}, len(p.Brands))
	for _, b := range p.Brands {
		out[b] = struct{}{}
	}
	return out
}
