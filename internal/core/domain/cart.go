package domain

import "sort"

// CartLine snapshots the display fields of a product at add time.
type CartLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Image     string `json:"image"`
	Artisan   string `json:"artisan"`
}

func (l CartLine) Subtotal() int64 {
	return int64(l.Quantity) * l.Price
}

// CartState holds the lines keyed by product id. TotalItems and TotalPrice
// are derived and only ever written by Recalculate.
type CartState struct {
	Lines      map[string]CartLine
	TotalItems int
	TotalPrice int64
}

func EmptyCart() CartState {
	return CartState{Lines: make(map[string]CartLine)}
}

func (s *CartState) Recalculate() {
	s.TotalItems = 0
	s.TotalPrice = 0
	for _, line := range s.Lines {
		s.TotalItems += line.Quantity
		s.TotalPrice += line.Subtotal()
	}
}

func (s *CartState) Add(p Product) {
	if s.Lines == nil {
		s.Lines = make(map[string]CartLine)
	}
	if line, ok := s.Lines[p.ID]; ok {
		line.Quantity++
		s.Lines[p.ID] = line
	} else {
		s.Lines[p.ID] = CartLine{
			ProductID: p.ID,
			Quantity:  1,
			Name:      p.Name,
			Price:     p.Price,
			Image:     p.Image,
			Artisan:   p.Artisan,
		}
	}
	s.Recalculate()
}

// SetQuantity removes the line when quantity <= 0 and ignores unknown ids.
func (s *CartState) SetQuantity(productID string, quantity int) {
	line, ok := s.Lines[productID]
	if !ok {
		return
	}
	if quantity <= 0 {
		delete(s.Lines, productID)
	} else {
		line.Quantity = quantity
		s.Lines[productID] = line
	}
	s.Recalculate()
}

// Subtract takes the given lines' quantities out of the cart. Lines added
// or topped up since the snapshot keep the difference.
func (s *CartState) Subtract(lines []CartLine) {
	for _, sold := range lines {
		line, ok := s.Lines[sold.ProductID]
		if !ok {
			continue
		}
		if line.Quantity <= sold.Quantity {
			delete(s.Lines, sold.ProductID)
			continue
		}
		line.Quantity -= sold.Quantity
		s.Lines[sold.ProductID] = line
	}
	s.Recalculate()
}

func (s *CartState) Remove(productID string) {
	delete(s.Lines, productID)
	s.Recalculate()
}

func (s *CartState) Clear() {
	s.Lines = make(map[string]CartLine)
	s.Recalculate()
}

func (s CartState) IsEmpty() bool {
	return len(s.Lines) == 0
}

// Clone returns a copy that shares no map with s.
func (s CartState) Clone() CartState {
	out := CartState{
		Lines:      make(map[string]CartLine, len(s.Lines)),
		TotalItems: s.TotalItems,
		TotalPrice: s.TotalPrice,
	}
	for id, line := range s.Lines {
		out.Lines[id] = line
	}
	return out
}

// SortedLines lists the lines ordered by product id.
func (s CartState) SortedLines() []CartLine {
	lines := make([]CartLine, 0, len(s.Lines))
	for _, line := range s.Lines {
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].ProductID < lines[j].ProductID
	})
	return lines
}
