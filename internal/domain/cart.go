package domain

import (
	"fmt"
	"sort"
	"strings"
)

// ItemKind discriminates the two catalogs that share a cart.
type ItemKind int

const (
	KindProduct ItemKind = iota + 1
	KindSupply
)

func (k ItemKind) String() string {
	switch k {
	case KindProduct:
		return "product"
	case KindSupply:
		return "supply"
	default:
		return "unknown"
	}
}

func (k ItemKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ItemKind) UnmarshalText(b []byte) error {
	parsed, err := ParseItemKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseItemKind accepts the singular and the collection name of a kind.
func ParseItemKind(s string) (ItemKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "product", "products":
		return KindProduct, nil
	case "supply", "supplies":
		return KindSupply, nil
	default:
		return 0, fmt.Errorf("unknown item kind %q", s)
	}
}

// Collection is the plural used in catalog paths.
func (k ItemKind) Collection() string {
	switch k {
	case KindProduct:
		return "products"
	case KindSupply:
		return "supplies"
	default:
		return "unknown"
	}
}

// ItemRef identifies an item in one of the two catalogs.
type ItemRef struct {
	ID   string   `json:"id"`
	Kind ItemKind `json:"kind"`
}

func ProductRef(id string) ItemRef { return ItemRef{ID: id, Kind: KindProduct} }

func SupplyRef(id string) ItemRef { return ItemRef{ID: id, Kind: KindSupply} }

// RefFor builds a reference from the wire-level isProduct flag.
func RefFor(id string, isProduct bool) ItemRef {
	if isProduct {
		return ProductRef(id)
	}
	return SupplyRef(id)
}

func (r ItemRef) IsProduct() bool { return r.Kind == KindProduct }

func (r ItemRef) Valid() bool {
	return strings.TrimSpace(r.ID) != "" && (r.Kind == KindProduct || r.Kind == KindSupply)
}

// Key is unique across both catalogs.
func (r ItemRef) Key() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

// OtherBrand groups lines whose brand is unset.
const OtherBrand = "Other"

// CartLine is one entry of a user's cart. ID is the server-assigned line id and is
// empty for transient buy-now lines.
type CartLine struct {
	ID             string  `json:"id,omitempty"`
	Item           ItemRef `json:"item"`
	Name           string  `json:"name,omitempty"`
	Quantity       int     `json:"quantity"`
	UnitPrice      int64   `json:"unitPrice"`
	AvailableStock int     `json:"availableStock"`
	Brand          string  `json:"brand,omitempty"`
}

// NewProductLine builds a cart line for a product.
func NewProductLine(lineID, productID, name string, quantity int, unitPrice int64, stock int, brand string) CartLine {
	return CartLine{
		ID:             lineID,
		Item:           ProductRef(productID),
		Name:           name,
		Quantity:       quantity,
		UnitPrice:      unitPrice,
		AvailableStock: stock,
		Brand:          brand,
	}
}

// NewSupplyLine builds a cart line for a supply item.
func NewSupplyLine(lineID, supplyID, name string, quantity int, unitPrice int64, stock int, brand string) CartLine {
	return CartLine{
		ID:             lineID,
		Item:           SupplyRef(supplyID),
		Name:           name,
		Quantity:       quantity,
		UnitPrice:      unitPrice,
		AvailableStock: stock,
		Brand:          brand,
	}
}

func (l CartLine) Subtotal() int64 {
	return int64(l.Quantity) * l.UnitPrice
}

// BrandOf returns the grouping key of a line.
func BrandOf(l CartLine) string {
	b := strings.TrimSpace(l.Brand)
	if b == "" {
		return OtherBrand
	}
	return b
}

// Cart is the set of lines owned by one user.
type Cart struct {
	UserID string     `json:"userId"`
	Lines  []CartLine `json:"lines"`
}

func (c Cart) Total() int64 { return Total(c.Lines) }

func (c Cart) ItemCount() int { return ItemCount(c.Lines) }

// Find returns the line holding the given item, if any.
func (c Cart) Find(ref ItemRef) (CartLine, bool) {
	for _, l := range c.Lines {
		if l.Item == ref {
			return l, true
		}
	}
	return CartLine{}, false
}

// Total sums quantity x unit price.
func Total(lines []CartLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}

// ItemCount sums quantities.
func ItemCount(lines []CartLine) int {
	count := 0
	for _, l := range lines {
		count += l.Quantity
	}
	return count
}

// Brands returns the sorted set of distinct brand keys.
func Brands(lines []CartLine) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		b := BrandOf(l)
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// GroupByBrand partitions lines by brand key, preserving line order inside a group.
func GroupByBrand(lines []CartLine) map[string][]CartLine {
	groups := make(map[string][]CartLine)
	for _, l := range lines {
		b := BrandOf(l)
		groups[b] = append(groups[b], l)
	}
	return groups
}

// CloneLines returns a copy that callers may keep.
func CloneLines(lines []CartLine) []CartLine {
	if lines == nil {
		return nil
	}
	out := make([]CartLine, len(lines))
	copy(out, lines)
	return out
}
